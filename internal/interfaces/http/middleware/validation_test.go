package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleValidationError(t *testing.T) {
	type body struct {
		ItemName string `json:"itemName" binding:"required,max=10"`
		Status   string `json:"status" binding:"omitempty,oneof=Approved Rejected"`
	}

	SetupValidator()
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req body
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name        string
		payload     string
		wantDetails map[string]string
		wantMessage string
	}{
		{
			name:        "missing field uses JSON name",
			payload:     `{}`,
			wantDetails: map[string]string{"itemName": "This field is required"},
			wantMessage: "Request validation failed",
		},
		{
			name:        "several failures",
			payload:     `{"itemName":"far too long a name","status":"Maybe"}`,
			wantDetails: map[string]string{"itemName": "Must be at most 10 characters", "status": "Must be one of: Approved Rejected"},
			wantMessage: "Request validation failed",
		},
		{
			name:        "malformed JSON",
			payload:     `{"itemName":`,
			wantDetails: map[string]string{},
			wantMessage: "Malformed request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := serve(router, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			assert.Equal(t, tt.wantMessage, resp.Error.Message)

			got := map[string]string{}
			for _, d := range resp.Error.Details {
				got[d.Field] = d.Message
			}
			assert.Equal(t, tt.wantDetails, got)
		})
	}
}
