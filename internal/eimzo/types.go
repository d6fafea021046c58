package eimzo

import (
	"encoding/json"
	"time"
)

// PINFLOID is the subject name attribute carrying the personal ID number.
const PINFLOID = "1.2.860.3.16.1.2"

// Endpoint is a path on the E-IMZO server.
type Endpoint string

const (
	EndpointChallenge      Endpoint = "/frontend/challenge"
	EndpointAuth           Endpoint = "/backend/auth"
	EndpointTimestamp      Endpoint = "/frontend/timestamp/pkcs7"
	EndpointVerifyAttached Endpoint = "/backend/pkcs7/verify/attached"
	EndpointVerifyDetached Endpoint = "/backend/pkcs7/verify/detached"
)

var transportMessages = map[Endpoint]string{
	EndpointChallenge:      "Failed to connect to E-IMZO server",
	EndpointAuth:           "Authentication verification failed",
	EndpointTimestamp:      "Failed to add timestamp",
	EndpointVerifyAttached: "Signature verification failed",
	EndpointVerifyDetached: "Detached signature verification failed",
}

// TransportMessage is shown when the server at ep cannot be reached.
func (ep Endpoint) TransportMessage() string {
	if m, ok := transportMessages[ep]; ok {
		return m
	}
	return transportMessages[EndpointChallenge]
}

// Challenge is a one-time token to be signed by the user's key.
type Challenge struct {
	Challenge string        `json:"challenge"`
	TTL       time.Duration `json:"-"`
}

// TTLSeconds is the lifetime as reported by the server.
func (c Challenge) TTLSeconds() int {
	return int(c.TTL / time.Second)
}

// SubjectName holds the certificate subject attributes this service uses.
type SubjectName struct {
	CommonName string  `json:"CN,omitempty"`
	INN        *string `json:"UID,omitempty"`
	PINFL      *string `json:"1.2.860.3.16.1.2,omitempty"`
}

// CertificateInfo is the subjectCertificateInfo block of an auth response.
type CertificateInfo struct {
	SubjectName  SubjectName `json:"subjectName"`
	SerialNumber string      `json:"serialNumber"`
	ValidFrom    string      `json:"validFrom,omitempty"`
	ValidTo      string      `json:"validTo,omitempty"`
}

// HasIdentity reports whether at least one national ID is present.
func (c *CertificateInfo) HasIdentity() bool {
	return nonEmpty(c.SubjectName.PINFL) || nonEmpty(c.SubjectName.INN)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Result is a successful timestamp or pkcs7 verification response. Payload
// is the whole decoded body, passed on without interpretation.
type Result struct {
	Status  int
	Message string
	Payload map[string]json.RawMessage
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Payload)
}
