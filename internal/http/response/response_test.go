package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/domain/facterr"
)

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
		recorded   bool
	}{
		{"validation", facterr.Validation("op", "fact_value is required"), http.StatusBadRequest, "validation", "fact_value is required", false},
		{"fact not found", facterr.NewError(facterr.CodeFactNotFound, "op", "fact not found", nil), http.StatusNotFound, "fact_not_found", "fact not found", false},
		{"confirmation not found", facterr.NewError(facterr.CodeConfirmationNotFound, "op", "already resolved", nil), http.StatusNotFound, "confirmation_not_found", "already resolved", false},
		{"conflict", facterr.NewError(facterr.CodeConflict, "op", "raced", nil), http.StatusConflict, "conflict", "raced", false},
		{"unavailable", facterr.NewError(facterr.CodeStoreUnavailable, "op", "db down", nil), http.StatusServiceUnavailable, "store_unavailable", "db down", false},
		{"invariant hidden", facterr.NewError(facterr.CodeInvariantViolation, "op", "two active facts", nil), http.StatusInternalServerError, "invariant_violation", internalMessage, true},
		{"uncoded hidden", errors.New("pq: secret detail"), http.StatusInternalServerError, "internal", internalMessage, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			Error(c, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, rec.Code)
			}
			var env ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error.Code != tc.wantCode {
				t.Fatalf("code: want=%s got=%s", tc.wantCode, env.Error.Code)
			}
			if env.Error.Message != tc.wantMsg {
				t.Fatalf("message: want=%q got=%q", tc.wantMsg, env.Error.Message)
			}
			if (len(c.Errors) > 0) != tc.recorded {
				t.Fatalf("recorded on context: %v", c.Errors)
			}
		})
	}
}

func TestBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	BadRequest(c, errors.New("unexpected EOF"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Code != CodeInvalidRequest || env.Error.Message != "unexpected EOF" {
		t.Fatalf("envelope: %+v", env)
	}
}
