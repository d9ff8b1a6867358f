package recovery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leadflowhq/leadflow/pkg/models"
)

// conditionValue extracts the ErrorContext dimension a condition inspects.
func conditionValue(errorContext *models.ErrorContext, conditionType models.ConditionType, now time.Time) (string, bool) {
	switch conditionType {
	case models.ConditionErrorMessage:
		return errorContext.ErrorMessage, true
	case models.ConditionErrorType:
		return errorContext.ErrorType, true
	case models.ConditionRetryCount:
		return strconv.Itoa(errorContext.RetryCount), true
	case models.ConditionWorkflowType:
		return errorContext.WorkflowType, true
	case models.ConditionTimeOfDay:
		return now.UTC().Format("15:04"), true
	default:
		return "", false
	}
}

// Matches evaluates one condition against the context. It is a pure
// predicate: unknown types or operators and malformed values evaluate to
// false rather than erroring, so a bad strategy can never break error
// handling.
func Matches(errorContext *models.ErrorContext, condition models.RecoveryCondition, now time.Time) bool {
	actual, ok := conditionValue(errorContext, condition.Type, now)
	if !ok {
		return false
	}

	switch condition.Operator {
	case models.OperatorEquals:
		return actual == condition.Value
	case models.OperatorContains:
		return strings.Contains(actual, condition.Value)
	case models.OperatorMatches:
		matched, err := regexp.MatchString(condition.Value, actual)

		return err == nil && matched
	case models.OperatorGreaterThan:
		return compareNumericOrTime(actual, condition.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compareNumericOrTime(actual, condition.Value, func(a, b float64) bool { return a < b })
	default:
		return false
	}
}

// compareNumericOrTime compares two values numerically, falling back to
// HH:MM clock comparison for time_of_day conditions.
func compareNumericOrTime(actual, expected string, cmp func(a, b float64) bool) bool {
	a, errA := strconv.ParseFloat(actual, 64)
	b, errB := strconv.ParseFloat(expected, 64)

	if errA == nil && errB == nil {
		return cmp(a, b)
	}

	at, errA := time.Parse("15:04", actual)
	bt, errB := time.Parse("15:04", expected)

	if errA != nil || errB != nil {
		return false
	}

	return cmp(float64(at.Hour()*60+at.Minute()), float64(bt.Hour()*60+bt.Minute()))
}

// strategyMatches reports whether every condition of the strategy holds.
func strategyMatches(errorContext *models.ErrorContext, strategy models.RecoveryStrategy, now time.Time) bool {
	for _, condition := range strategy.Conditions {
		if !Matches(errorContext, condition, now) {
			return false
		}
	}

	return true
}
