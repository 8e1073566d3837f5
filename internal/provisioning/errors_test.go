package provisioning

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"resource not found", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, true},
		{"wrapped", fmt.Errorf("get agent: %w", &smithy.GenericAPIError{Code: "ResourceNotFoundException"}), true},
		{"other api error", &smithy.GenericAPIError{Code: "ValidationException"}, false},
		{"plain error", errors.New("ResourceNotFoundException"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}
