package orchestrator

import (
	"errors"
	"testing"

	"eeapi/internal/types"
)

func TestParsePolicyRequest(t *testing.T) {
	body := "Path: /gpfs/fs1\r\nOptions: -I defer\r\nPolicy: RULE 'a' LIST 'x'\r\nRULE 'b' LIST 'y'\r\n"
	req, err := ParsePolicyRequest(body)
	if err != nil {
		t.Fatalf("ParsePolicyRequest: %v", err)
	}
	if req.Path != "/gpfs/fs1" || req.Options != "-I defer" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Policy != "RULE 'a' LIST 'x'\nRULE 'b' LIST 'y'\n" {
		t.Fatalf("policy = %q", req.Policy)
	}
}

func TestParsePolicyRequestPolicyKeepsMarkers(t *testing.T) {
	// Lines after Policy: belong to the policy even if they look like markers.
	req, err := ParsePolicyRequest("Path: /gpfs\nPolicy:\n/* Options: ignored */\nRULE 'x' LIST 'y'\n")
	if err != nil {
		t.Fatal(err)
	}
	if req.Options != "" || req.Policy != "/* Options: ignored */\nRULE 'x' LIST 'y'\n" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestParsePolicyRequestErrors(t *testing.T) {
	bodies := []string{
		"",
		"Policy: RULE 'x'\n",
		"Path: /gpfs\n",
		"Path: /gpfs\nPolicy:\n\n",
		"Path: /gpfs\nOptions: -I yes; reboot\nPolicy: RULE 'x'\n",
		"Path: /gpfs\nOptions: $(id)\nPolicy: RULE 'x'\n",
	}
	for _, body := range bodies {
		var ve *types.ValidationError
		if _, err := ParsePolicyRequest(body); !errors.As(err, &ve) {
			t.Errorf("ParsePolicyRequest(%q): expected ValidationError, got %v", body, err)
		}
	}
}
