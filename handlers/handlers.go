package handlers

import (
	"net/http"
	"strconv"

	"github.com/upb/expert-gateway/app"
	"github.com/upb/expert-gateway/middleware"
	"github.com/upb/expert-gateway/models"
	"github.com/upb/expert-gateway/services"
	"github.com/upb/expert-gateway/utils"
	"go.uber.org/zap"
)

// defaultAccessLogLimit applies when the limit query parameter is absent
const defaultAccessLogLimit = 50

// CurrentUserResponse is the response body for GET /users/me
type CurrentUserResponse struct {
	UserID int64           `json:"userId"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
}

// GetCurrentUserHandler echoes the identity the gate attached to the request
func GetCurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetAuthUserFromContext(r.Context())
		if user == nil {
			HandleServiceError(w, services.ErrMissingCredential, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, CurrentUserResponse{
			UserID: user.UserID,
			Email:  user.Email,
			Role:   user.Role,
		})
	}
}

// AccessLogQuery holds the query parameters of GET /admin/access-logs
type AccessLogQuery struct {
	Limit  int    `validate:"min=1,max=500"`
	Offset int    `validate:"min=0"`
	UserID *int64 `validate:"omitnil,gt=0"`
}

// AccessLogPage is the response body for GET /admin/access-logs
type AccessLogPage struct {
	Items  []*models.AdminAccessLog `json:"items"`
	Total  int64                    `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// ListAdminAccessLogsHandler lists recent admin access records, newest first
func ListAdminAccessLogsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseAccessLogQuery(r)
		if err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		ctx := r.Context()
		var items []*models.AdminAccessLog
		if query.UserID != nil {
			items, err = deps.AdminAccessLogs.GetByUserID(ctx, *query.UserID, query.Limit, query.Offset)
		} else {
			items, err = deps.AdminAccessLogs.List(ctx, query.Limit, query.Offset)
		}
		if err != nil {
			HandleServiceError(w, services.WrapInternal("failed to list admin access logs", err), deps.Logger)
			return
		}

		total, err := deps.AdminAccessLogs.Count(ctx)
		if err != nil {
			HandleServiceError(w, services.WrapInternal("failed to count admin access logs", err), deps.Logger)
			return
		}

		if items == nil {
			items = []*models.AdminAccessLog{}
		}

		deps.Logger.Debug("listed admin access logs",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Int("count", len(items)))

		_ = utils.WriteOK(w, AccessLogPage{
			Items:  items,
			Total:  total,
			Limit:  query.Limit,
			Offset: query.Offset,
		})
	}
}

func parseAccessLogQuery(r *http.Request) (*AccessLogQuery, error) {
	values := r.URL.Query()
	query := &AccessLogQuery{Limit: defaultAccessLogLimit}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, integerParamError("limit")
		}
		query.Limit = limit
	}

	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, integerParamError("offset")
		}
		query.Offset = offset
	}

	if raw := values.Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, integerParamError("user_id")
		}
		query.UserID = &userID
	}

	if err := utils.ValidateStruct(query); err != nil {
		return nil, err
	}
	return query, nil
}

func integerParamError(param string) error {
	return &utils.ValidationError{
		Message: "Validation failed",
		Fields:  map[string]string{param: param + " must be an integer"},
	}
}
