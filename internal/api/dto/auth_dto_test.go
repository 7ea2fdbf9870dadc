package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/clientflow-auth/pkg/util/errorutil"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{Name: "Jane", Email: "Jane@ClientFlow.com", Password: "Secret123!"}
	require.NoError(t, valid.Validate())

	withRole := valid
	withRole.Role = "SALES_MANAGER"
	require.NoError(t, withRole.Validate())

	badRole := valid
	badRole.Role = "CEO"
	require.Error(t, badRole.Validate())

	tooLong := valid
	tooLong.Password = string(make([]byte, 73))
	require.Error(t, tooLong.Validate())
}

func TestNormalizeKeepsEmailCase(t *testing.T) {
	req := RegisterRequest{Name: "  Jane ", Email: " Jane@ClientFlow.com ", Role: " "}
	req.Normalize()
	require.Equal(t, "Jane", req.Name)
	require.Equal(t, "Jane@ClientFlow.com", req.Email)
	require.Empty(t, req.Role)
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError(LoginRequest{Email: "nope"}.Validate())
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	details := apperrors.ToDomainError(err).Details
	require.Contains(t, details, "email")
	require.Contains(t, details, "password")

	require.NoError(t, ValidationError(nil))
}

func TestUpdateStatusRequiresValue(t *testing.T) {
	require.Error(t, UpdateStatusRequest{}.Validate())
	active := false
	require.NoError(t, UpdateStatusRequest{IsActive: &active}.Validate())
}
