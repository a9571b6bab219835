package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigErrorUnwraps(t *testing.T) {
	err := Config("match", "comparison", []string{"a", "b", "c"}, "expected one or two column names")
	if !errors.Is(err, ErrConfig) {
		t.Fatal("ConfigError should unwrap to ErrConfig")
	}

	wrapped := fmt.Errorf("adding condition: %w", err)
	if !IsConfig(wrapped) {
		t.Error("IsConfig should see through wrapping")
	}

	var ce *ConfigError
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As should find the ConfigError")
	}
	if ce.Component != "match" {
		t.Errorf("component = %q", ce.Component)
	}
	if !strings.Contains(err.Error(), "comparison") {
		t.Errorf("message should name the key: %q", err.Error())
	}
}

func TestDataShape(t *testing.T) {
	err := DataShape("column %q is not numeric", "RT")
	if !errors.Is(err, ErrDataShape) {
		t.Error("DataShape should unwrap to ErrDataShape")
	}
	if IsConfig(err) {
		t.Error("data anomalies are not configuration errors")
	}
}
