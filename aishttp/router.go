// Package aishttp implements the AIS HTTP boundary (§6.2): register/health/
// rotate-key/current-key, with the C12 per-IP rate limiter in front.
package aishttp

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/actor-rtc/actrix-core/actorid"
	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/aisissuer"
	"github.com/actor-rtc/actrix-core/ratelimit"
	aidv1 "github.com/actor-rtc/actrix-core/wire/aid/v1"
)

// maxRegisterBodyBytes bounds the protobuf-encoded RegisterRequest body,
// mirroring the identity-gateway boundary's fixed body-size cap.
const maxRegisterBodyBytes = 1 << 16

// Config configures the router's dependencies and service metadata.
type Config struct {
	Issuer      *aisissuer.Issuer
	Limiter     *ratelimit.Limiter
	ServiceName string
	Version     string
	CORS        CORSConfig

	// HealthTimeout bounds each of the three concurrent health sub-checks.
	HealthTimeout time.Duration

	nowFn func() time.Time
}

func (c Config) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}

// New builds the AIS HTTP handler tree.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(cors(cfg.CORS))
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	h := &handler{cfg: cfg}
	r.Post("/ais/register", h.register)
	r.Get("/ais/health", h.health)
	r.Post("/ais/rotate-key", h.rotateKey)
	r.Get("/ais/current-key", h.currentKey)
	return r
}

type handler struct {
	cfg Config
}

// register implements POST /ais/register: protobuf in, protobuf out, errors
// in-band via RegisterResponse.Error — only a malformed wire body yields a
// non-200 status, per §6.2.
func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRegisterBodyBytes))
	defer r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var wireReq aidv1.RegisterRequest
	if err := wireReq.Unmarshal(body); err != nil {
		http.Error(w, "malformed RegisterRequest", http.StatusBadRequest)
		return
	}

	req := aisissuer.RegisterRequest{ServiceSpec: wireReq.ServiceSpec, ACL: wireReq.Acl}
	if wireReq.Realm != nil {
		req.RealmID = wireReq.Realm.RealmID
	}
	if wireReq.ActrType != nil {
		req.ActorType = actorid.ActorType{Manufacturer: wireReq.ActrType.Manufacturer, Name: wireReq.ActrType.Name}
	}

	cred, err := h.cfg.Issuer.IssueCredential(r.Context(), req)
	if err != nil {
		writeRegisterError(w, err)
		return
	}

	resp := &aidv1.RegisterResponse{
		Ok: &aidv1.RegisterOk{
			ActorId: &aidv1.ActorId{
				RealmID:      cred.ActorID.RealmID,
				SerialNumber: cred.ActorID.SerialNumber,
				Type:         &aidv1.ActorType{Manufacturer: cred.ActorID.Type.Manufacturer, Name: cred.ActorID.Type.Name},
			},
			Credential:                     &aidv1.AIdCredential{TokenKeyID: cred.TokenKeyID, EncryptedToken: cred.EncryptedToken},
			Psk:                            cred.PSK,
			CredentialExpiresAt:            cred.CredentialExpiresAt.Unix(),
			SignalingHeartbeatIntervalSecs: cred.SignalingHeartbeatIntervalSecs,
		},
	}
	writeProto(w, http.StatusOK, resp)
}

func writeRegisterError(w http.ResponseWriter, err error) {
	resp := &aidv1.RegisterResponse{
		Error: &aidv1.RegisterError{Code: int32(aiderr.HTTPStatus(err)), Message: err.Error()},
	}
	writeProto(w, http.StatusOK, resp)
}

func writeProto(w http.ResponseWriter, status int, m interface{ Marshal() []byte }) {
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(status)
	_, _ = w.Write(m.Marshal())
}

// healthResponse mirrors §6.2's JSON shape.
type healthResponse struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Version   string         `json:"version"`
	Database  string         `json:"database"`
	KSService string         `json:"ks_service"`
	KeyCache  keyCacheHealth `json:"key_cache"`
}

type keyCacheHealth struct {
	Status    string `json:"status"`
	KeyID     uint32 `json:"key_id,omitempty"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// health implements GET /ais/health, running the three sub-checks
// concurrently per §4.11.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	status := h.cfg.Issuer.CheckHealth(r.Context(), h.cfg.HealthTimeout)

	resp := healthResponse{
		Service:   h.cfg.ServiceName,
		Version:   h.cfg.Version,
		Database:  statusString(status.CacheOK),
		KSService: statusString(status.KSOK),
		KeyCache:  keyCacheHealth{Status: statusString(status.KeyFresh)},
	}
	if status.Healthy() {
		resp.Status = "healthy"
	} else {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

func statusString(ok bool) string {
	if ok {
		return "ok"
	}
	return "unhealthy"
}

// rotateKey implements POST /ais/rotate-key.
func (h *handler) rotateKey(w http.ResponseWriter, r *http.Request) {
	if err := h.cfg.Issuer.RotateKey(r.Context()); err != nil {
		writeJSON(w, aiderr.HTTPStatus(err), map[string]any{"status": "error", "message": err.Error()})
		return
	}
	keyID, ok, err := h.cfg.Issuer.CurrentKeyID(r.Context())
	if err != nil || !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "message": "key rotated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "message": "key rotated", "new_key_id": keyID})
}

// currentKey implements GET /ais/current-key.
func (h *handler) currentKey(w http.ResponseWriter, r *http.Request) {
	keyID, ok, err := h.cfg.Issuer.CurrentKeyID(r.Context())
	if err != nil || !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "key_id": keyID})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
