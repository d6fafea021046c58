package eimzo

import "fmt"

// StatusOK is the only status value the server uses for success.
const StatusOK = 1

// authMessages maps /backend/auth statuses to user-facing messages.
var authMessages = map[int]string{
	-1:  "Sertifikat holatini tekshirib bo'lmadi",
	-5:  "Imzo vaqti noto'g'ri. Kompyuter vaqtini tekshiring",
	-10: "Elektron raqamli imzo noto'g'ri",
	-11: "Sertifikat noto'g'ri",
	-12: "Sertifikat imzo sanasida noto'g'ri",
	-20: "Challenge topilmadi yoki muddati tugagan",
}

// verificationMessages maps /backend/pkcs7/verify/* statuses. The same code
// can mean something else than on the auth endpoint (-20 in particular).
var verificationMessages = map[int]string{
	-1:  "Sertifikat holatini tekshirib bo'lmadi",
	-10: "Elektron raqamli imzo noto'g'ri",
	-11: "Sertifikat noto'g'ri",
	-12: "Sertifikat imzo sanasida noto'g'ri",
	-20: "Timestamp sertifikatini tekshirib bo'lmadi",
	-21: "Timestamp imzosi yoki heshi noto'g'ri",
	-22: "Timestamp sertifikati noto'g'ri",
	-23: "Timestamp sertifikati imzo sanasida noto'g'ri",
}

// AuthMessage returns the message for a status of the auth endpoint.
func AuthMessage(status int) string {
	return lookup(authMessages, status)
}

// VerificationMessage returns the message for a status of the pkcs7
// verification endpoints.
func VerificationMessage(status int) string {
	return lookup(verificationMessages, status)
}

func lookup(table map[int]string, status int) string {
	if msg, ok := table[status]; ok {
		return msg
	}
	return fmt.Sprintf("Noma'lum xatolik (status: %d)", status)
}
