package config

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("CVINTAKE_TEST_VALUE", "set")

	if got := GetEnv("CVINTAKE_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("GetEnv() = %q, want %q", got, "set")
	}
	if got := GetEnv("CVINTAKE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() = %q, want %q", got, "fallback")
	}
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		value          string
		want           string
		productionLike bool
	}{
		{"", EnvDevelopment, false},
		{"Production", EnvProduction, true},
		{"staging", EnvStaging, true},
		{"development", EnvDevelopment, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("CVINTAKE_SERVER_ENVIRONMENT", tt.value)
			if got := GetEnvironment(); got != tt.want {
				t.Errorf("GetEnvironment() = %q, want %q", got, tt.want)
			}
			if got := IsProductionLike(); got != tt.productionLike {
				t.Errorf("IsProductionLike() = %v, want %v", got, tt.productionLike)
			}
		})
	}
}
