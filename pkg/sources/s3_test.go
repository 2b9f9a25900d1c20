package sources

import (
	"fmt"
	"testing"

	"github.com/aws/smithy-go"

	"github.com/pixelgate/pixelgate/pkg/config"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"head not found", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"wrapped", fmt.Errorf("get: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), true},
		{"plain error", fmt.Errorf("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isNoSuchKey(tc.err); got != tc.want {
				t.Errorf("isNoSuchKey(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestR2SourceIdentityAndEligibility(t *testing.T) {
	source := NewR2Source(nil, config.R2SourceConfig{
		Enabled: true,
		Bucket:  "assets",
		Prefix:  "prod/",
	}, nil)

	if source.ID() != R2SourceID {
		t.Errorf("ID = %q, want %q", source.ID(), R2SourceID)
	}
	if source.Name() != "source-r2" {
		t.Errorf("Name = %q, want source-r2", source.Name())
	}
	if !source.Eligible() {
		t.Fatal("source should start eligible")
	}
	source.SetEligible(false)
	if source.Eligible() {
		t.Error("source should be ineligible after toggle")
	}
}
