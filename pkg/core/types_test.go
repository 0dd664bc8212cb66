package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnType_BaseType(t *testing.T) {
	for _, scalar := range ScalarTypes() {
		assert.Equal(t, scalar, scalar.BaseType(), "scalar %s", scalar)
		assert.False(t, scalar.IsArray())

		array := scalar.ArrayOf()
		assert.True(t, array.IsArray(), "array of %s", scalar)
		assert.Equal(t, scalar, array.BaseType())
		assert.Equal(t, array.BaseType(), array.BaseType().BaseType(), "base type is idempotent")
	}
}

func TestColumnType_ArrayOfArrayIsNoop(t *testing.T) {
	assert.Equal(t, TypeStringArray, TypeStringArray.ArrayOf())
	assert.Equal(t, TypeInvalid, TypeInvalid.ArrayOf())
}

func TestColumnType_IsID(t *testing.T) {
	assert.True(t, TypeID.IsID())
	assert.False(t, TypeIDArray.IsID())
	assert.False(t, TypeString.IsID())
}

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		input    string
		expected ColumnType
		wantErr  bool
	}{
		{"id", TypeID, false},
		{"string", TypeString, false},
		{" Timestamp ", TypeTimestamp, false},
		{"string[]", TypeStringArray, false},
		{"blob[]", TypeBlobArray, false},
		{"uuid", TypeInvalid, true},
		{"", TypeInvalid, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColumnType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestColumnType_StringParsesBack(t *testing.T) {
	for _, ct := range AllTypes() {
		got, err := ParseColumnType(ct.String())
		require.NoError(t, err)
		assert.Equal(t, ct, got)
	}
}

func TestErrors_Is(t *testing.T) {
	exhausted := fmt.Errorf("borrow: %w", &PoolExhaustedError{Repository: "default", Capacity: 1, Timeout: time.Second})
	assert.True(t, errors.Is(exhausted, ErrPoolExhausted))

	var pe *PoolExhaustedError
	require.True(t, errors.As(exhausted, &pe))
	assert.Equal(t, 1, pe.Capacity)
	assert.Contains(t, exhausted.Error(), "1s")

	timeout := &ClusterStartTimeoutError{Lock: "boot", Window: 30 * time.Second}
	assert.True(t, errors.Is(timeout, ErrClusterStartTimeout))
	assert.False(t, errors.Is(timeout, ErrPoolExhausted))
}

func TestTypeMismatchError_Message(t *testing.T) {
	err := &TypeMismatchError{Column: "tags", Type: TypeStringArray, Value: "a"}
	assert.Contains(t, err.Error(), "requires an array value")
	assert.Contains(t, err.Error(), "string")

	err = &TypeMismatchError{Column: "title", Type: TypeString, Value: []string{"a"}}
	assert.Contains(t, err.Error(), "requires a scalar value")
}
