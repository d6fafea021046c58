package httpapi

import (
	"time"

	"github.com/dmitrijs2005/eimzo-auth/internal/eimzo"
	"github.com/dmitrijs2005/eimzo-auth/internal/server/models"
)

type loginRequest struct {
	PKCS7    string `json:"pkcs7" form:"pkcs7"`
	Remember *bool  `json:"remember" form:"remember"`
	// Bearer asks for the session token in the response body.
	Bearer bool `json:"bearer" form:"bearer"`
}

type signatureRequest struct {
	PKCS7 string `json:"pkcs7" form:"pkcs7"`
}

type detachedRequest struct {
	Document string `json:"document" form:"document"`
	PKCS7    string `json:"pkcs7" form:"pkcs7"`
}

type challengeData struct {
	Challenge string `json:"challenge"`
	TTL       int    `json:"ttl"`
}

type loginUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	PINFL *string `json:"pinfl"`
	INN   *string `json:"inn"`
}

type loginData struct {
	Message     string                 `json:"message"`
	User        loginUser              `json:"user"`
	Certificate *eimzo.CertificateInfo `json:"certificate"`
	Token       string                 `json:"token,omitempty"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
}

type meUser struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	PINFL             *string `json:"pinfl"`
	INN               *string `json:"inn"`
	CertificateSerial *string `json:"certificate_serial"`
}

func toLoginUser(u *models.User) loginUser {
	return loginUser{ID: u.ID, Name: u.Name, PINFL: u.PINFL, INN: u.INN}
}

func toMeUser(u *models.User) meUser {
	return meUser{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PINFL:             u.PINFL,
		INN:               u.INN,
		CertificateSerial: u.CertificateSerial,
	}
}
