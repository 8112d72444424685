package server

import (
	"fmt"
	"regexp"
	"strings"
)

var recordIDRegex = regexp.MustCompile(`^[1-9][0-9]{0,18}$`)

func validateRecordID(id string) bool {
	return recordIDRegex.MatchString(id)
}

func requireRecordID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", badRequestCode(fmt.Errorf("recordId is required"), ErrCodeMissingRequired)
	}
	if !validateRecordID(id) {
		return "", badRequestCode(fmt.Errorf("invalid recordId"), ErrCodeInvalidRecordID)
	}
	return id, nil
}

func requireParam(name, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", name), ErrCodeMissingRequired)
	}
	return value, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
