package gemini

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"notebase/internal/ingest"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"bad request", &googleapi.Error{Code: 400, Message: "invalid content"}, true},
		{"unauthorized", &googleapi.Error{Code: 403}, true},
		{"rate limited", &googleapi.Error{Code: 429}, false},
		{"request timeout", &googleapi.Error{Code: 408}, false},
		{"server error", &googleapi.Error{Code: 500}, false},
		{"wrapped client error", fmt.Errorf("call failed: %w", &googleapi.Error{Code: 422}), true},
		{"plain network error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			assert.Equal(t, tc.permanent, ingest.IsPermanent(got))
			assert.ErrorIs(t, got, tc.err)
		})
	}
}
