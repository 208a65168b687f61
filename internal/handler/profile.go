package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"steamboard-api/internal/model"
	"steamboard-api/internal/service"
	"steamboard-api/pkg/apierror"
	"steamboard-api/pkg/response"
)

const steamOpenIDEndpoint = "https://steamcommunity.com/openid/login"

// ProfileHandler handles credential and profile HTTP requests.
type ProfileHandler struct {
	svc *service.LibraryService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(svc *service.LibraryService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

type profileView struct {
	SteamID    string          `json:"steam_id"`
	APIKeySet  bool            `json:"api_key_set"`
	Profile    json.RawMessage `json:"profile,omitempty"`
	LastSynced int64           `json:"last_synced"`
}

// Get handles GET /api/v1/profile - the credentials state and the last
// fetched profile snapshot. The secret key itself is never echoed back.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Snapshot()
	creds := h.svc.Credentials()

	response.OK(w, profileView{
		SteamID:    creds.SteamID,
		APIKeySet:  creds.APIKey != "",
		Profile:    snap.Profile,
		LastSynced: snap.LastSynced,
	})
}

// Put handles PUT /api/v1/profile - stores the credential pair.
func (h *ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	if creds.SteamID == "" || creds.APIKey == "" {
		response.Error(w, apierror.ValidationError("both steam_id and api_key are required",
			apierror.FieldError{Field: "steam_id", Message: "required"},
			apierror.FieldError{Field: "api_key", Message: "required"}))
		return
	}

	if err := h.svc.SetCredentials(r.Context(), creds); err != nil {
		response.Error(w, asAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{"steam_id": creds.SteamID, "api_key_set": true})
}

// LoginURL handles GET /api/v1/auth/steam/login-url?return_to=
// It constructs the Steam OpenID redirect URL for the given return address;
// the rest of the login flow happens between the browser and Steam.
func (h *ProfileHandler) LoginURL(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("return_to")
	if returnTo == "" {
		response.Error(w, apierror.BadRequest("return_to is required"))
		return
	}

	parsed, err := url.Parse(returnTo)
	if err != nil || !parsed.IsAbs() {
		response.Error(w, apierror.BadRequest("return_to must be an absolute URL"))
		return
	}
	realm := parsed.Scheme + "://" + parsed.Host

	params := url.Values{}
	params.Set("openid.ns", "http://specs.openid.net/auth/2.0")
	params.Set("openid.mode", "checkid_setup")
	params.Set("openid.return_to", returnTo)
	params.Set("openid.realm", realm)
	params.Set("openid.identity", "http://specs.openid.net/auth/2.0/identifier_select")
	params.Set("openid.claimed_id", "http://specs.openid.net/auth/2.0/identifier_select")

	response.OK(w, map[string]string{"url": steamOpenIDEndpoint + "?" + params.Encode()})
}
