package controllers

import (
	"net/http"

	"github.com/okanvural/pickflow-backend/api/responses"
	"github.com/okanvural/pickflow-backend/api/validators"
	"github.com/okanvural/pickflow-backend/internal/barcode"
	"github.com/okanvural/pickflow-backend/pkg/logger"
)

type PublicValidateBody struct {
	Code string `json:"code" validate:"required,min=2,max=64"`
}

// PublicValidate previews how raw scanner input normalizes. Nothing is
// resolved against an order; scanner provisioning uses this to sanity-check
// label output.
func PublicValidate(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body PublicValidateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := barcode.NormalizeCode(validators.SanitizeString(body.Code, 64), 2)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"code":  code,
			"valid": true,
		})
	}
}
