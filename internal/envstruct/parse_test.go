package envstruct_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fitfocus/internal/envstruct"
)

type serverConfig struct {
	Addr            string        `env:"FITFOCUS_ADDR" envDefault:"localhost:8081"`
	OpenAIAPIKey    string        `env:"FITFOCUS_OPENAI_API_KEY"`
	SessionLifetime time.Duration `env:"FITFOCUS_SESSION_LIFETIME" envDefault:"8760h"`
	Verbose         bool          `env:"FITFOCUS_VERBOSE" envDefault:"false"`
	MaxDevices      int           `env:"FITFOCUS_MAX_DEVICES" envDefault:"100"`
	// Untagged fields are left alone.
	Version string
}

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestPopulate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    serverConfig
		wantErr error
	}{
		{
			name: "defaults",
			env:  map[string]string{"FITFOCUS_OPENAI_API_KEY": "sk-test"},
			want: serverConfig{
				Addr:            "localhost:8081",
				OpenAIAPIKey:    "sk-test",
				SessionLifetime: 8760 * time.Hour,
				Verbose:         false,
				MaxDevices:      100,
				Version:         "",
			},
			wantErr: nil,
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"FITFOCUS_ADDR":             "localhost:0",
				"FITFOCUS_OPENAI_API_KEY":   "",
				"FITFOCUS_SESSION_LIFETIME": "30m",
				"FITFOCUS_VERBOSE":          "true",
				"FITFOCUS_MAX_DEVICES":      "3",
			},
			want: serverConfig{
				Addr:            "localhost:0",
				OpenAIAPIKey:    "",
				SessionLifetime: 30 * time.Minute,
				Verbose:         true,
				MaxDevices:      3,
				Version:         "",
			},
			wantErr: nil,
		},
		{
			name:    "required variable missing",
			env:     map[string]string{},
			want:    serverConfig{}, //nolint:exhaustruct // not compared.
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"FITFOCUS_OPENAI_API_KEY": "", "FITFOCUS_SESSION_LIFETIME": "a year"},
			want:    serverConfig{}, //nolint:exhaustruct // not compared.
			wantErr: envstruct.ErrParseValue,
		},
		{
			name:    "invalid bool",
			env:     map[string]string{"FITFOCUS_OPENAI_API_KEY": "", "FITFOCUS_VERBOSE": "sometimes"},
			want:    serverConfig{}, //nolint:exhaustruct // not compared.
			wantErr: envstruct.ErrParseValue,
		},
		{
			name:    "invalid int",
			env:     map[string]string{"FITFOCUS_OPENAI_API_KEY": "", "FITFOCUS_MAX_DEVICES": "lots"},
			want:    serverConfig{}, //nolint:exhaustruct // not compared.
			wantErr: envstruct.ErrParseValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got serverConfig
			err := envstruct.Populate(&got, envFrom(tt.env))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Populate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Populate() unexpected error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Populate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPopulate_invalidTarget(t *testing.T) {
	noEnv := envFrom(nil)
	for name, v := range map[string]any{
		"nil":         nil,
		"not pointer": serverConfig{}, //nolint:exhaustruct // never populated.
		"not struct":  new(string),
	} {
		t.Run(name, func(t *testing.T) {
			if err := envstruct.Populate(v, noEnv); !errors.Is(err, envstruct.ErrInvalidValue) {
				t.Errorf("Populate() error = %v, want %v", err, envstruct.ErrInvalidValue)
			}
		})
	}
}

func TestPopulate_unsupportedType(t *testing.T) {
	var v struct {
		Ratio float64 `env:"RATIO"`
	}
	if err := envstruct.Populate(&v, envFrom(map[string]string{"RATIO": "0.5"})); !errors.Is(err, envstruct.ErrInvalidValue) {
		t.Errorf("Populate() error = %v, want %v", err, envstruct.ErrInvalidValue)
	}
}
