package domain

// Provenance records which credential source produced an Identity.
type Provenance string

const (
	ProvenanceBearer Provenance = "bearer"
	ProvenanceCookie Provenance = "cookie"
)

// Identity is the authenticated caller of a single request. It is never persisted.
type Identity struct {
	Subject      string
	Email        string
	Provenance   Provenance
	UserMetadata map[string]any
	AppMetadata  map[string]any
}

// Session is a token pair issued by the identity backend.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}
