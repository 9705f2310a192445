package pgproto3

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/polydb/pg/internal/pgio"
)

// ProtocolVersionNumber is the only protocol version this package speaks.
const ProtocolVersionNumber = 196608 // 3.0

// StartupMessage opens a connection. It has no leading type byte.
type StartupMessage struct {
	ProtocolVersion uint32
	Parameters      map[string]string
}

func (*StartupMessage) Frontend() {}

func (dst *StartupMessage) Decode(src []byte) error {
	if len(src) < 4 {
		return errors.New("startup message too short")
	}
	dst.ProtocolVersion = binary.BigEndian.Uint32(src)
	rp := 4

	dst.Parameters = make(map[string]string)
	for {
		idx := bytes.IndexByte(src[rp:], 0)
		if idx < 0 {
			return errors.New("invalid startup message")
		}
		key := string(src[rp : rp+idx])
		rp += idx + 1

		if key == "" {
			if rp != len(src) {
				return errors.New("invalid startup message")
			}
			return nil
		}

		idx = bytes.IndexByte(src[rp:], 0)
		if idx < 0 {
			return errors.New("invalid startup message")
		}
		dst.Parameters[key] = string(src[rp : rp+idx])
		rp += idx + 1
	}
}

func (src *StartupMessage) Encode(dst []byte) []byte {
	sp := len(dst)
	dst = pgio.AppendInt32(dst, -1)
	dst = pgio.AppendUint32(dst, src.ProtocolVersion)
	for k, v := range src.Parameters {
		dst = append(dst, k...)
		dst = append(dst, 0)
		dst = append(dst, v...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)
	binary.BigEndian.PutUint32(dst[sp:], uint32(len(dst)-sp))
	return dst
}

// sslRequestCode is the magic value libpq sends in place of a protocol
// version to ask for a TLS upgrade before the real startup packet.
const sslRequestCode = 80877103

// SSLRequest asks the server to upgrade to TLS before startup.
type SSLRequest struct{}

func (*SSLRequest) Frontend() {}

func (dst *SSLRequest) Decode(src []byte) error {
	if len(src) != 4 {
		return errors.New("ssl request too short")
	}
	if binary.BigEndian.Uint32(src) != sslRequestCode {
		return errors.New("bad ssl request code")
	}
	return nil
}

func (src *SSLRequest) Encode(dst []byte) []byte {
	dst = pgio.AppendInt32(dst, 8)
	dst = pgio.AppendInt32(dst, sslRequestCode)
	return dst
}

// PasswordMessage carries a cleartext or MD5-hashed password response.
type PasswordMessage struct {
	Password string
}

func (*PasswordMessage) Frontend() {}

func (dst *PasswordMessage) Decode(src []byte) error {
	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "PasswordMessage"}
	}
	dst.Password = string(src[:idx])
	return nil
}

func (src *PasswordMessage) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'p')
	dst = append(dst, src.Password...)
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// SASLInitialResponse begins a SASL exchange (SCRAM-SHA-256, OAUTHBEARER).
type SASLInitialResponse struct {
	AuthMechanism string
	Data          []byte
}

func (*SASLInitialResponse) Frontend() {}

func (dst *SASLInitialResponse) Decode(src []byte) error {
	*dst = SASLInitialResponse{}

	idx := bytes.IndexByte(src, 0)
	if idx < 0 {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	dst.AuthMechanism = string(src[:idx])
	rp := idx + 1

	if len(src[rp:]) < 4 {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	responseLen := int(int32(binary.BigEndian.Uint32(src[rp:])))
	rp += 4

	if responseLen == -1 {
		return nil
	}
	if len(src[rp:]) != responseLen {
		return &invalidMessageFormatErr{messageType: "SASLInitialResponse"}
	}
	dst.Data = src[rp:]
	return nil
}

func (src *SASLInitialResponse) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'p')
	dst = append(dst, src.AuthMechanism...)
	dst = append(dst, 0)
	if src.Data == nil {
		dst = pgio.AppendInt32(dst, -1)
	} else {
		dst = pgio.AppendInt32(dst, int32(len(src.Data)))
		dst = append(dst, src.Data...)
	}
	return finishMessage(dst, sp)
}

// SASLResponse continues a SASL exchange with another client message.
type SASLResponse struct {
	Data []byte
}

func (*SASLResponse) Frontend() {}

func (dst *SASLResponse) Decode(src []byte) error {
	dst.Data = src
	return nil
}

func (src *SASLResponse) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'p')
	dst = append(dst, src.Data...)
	return finishMessage(dst, sp)
}

// Authentication message type tags, from src/include/libpq/pqcomm.h.
const (
	AuthTypeOk                = 0
	AuthTypeCleartextPassword = 3
	AuthTypeMD5Password       = 5
	AuthTypeGSS               = 7
	AuthTypeGSSCont           = 8
	AuthTypeSASL              = 10
	AuthTypeSASLContinue      = 11
	AuthTypeSASLFinal         = 12
)

// AuthenticationOk reports that authentication succeeded.
type AuthenticationOk struct{}

func (*AuthenticationOk) Backend() {}

func (dst *AuthenticationOk) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationOk", expectedLen: 4, actualLen: len(src)}
	}
	return nil
}

func (src *AuthenticationOk) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeOk)
	return finishMessage(dst, sp)
}

// AuthenticationCleartextPassword asks for a cleartext password.
type AuthenticationCleartextPassword struct{}

func (*AuthenticationCleartextPassword) Backend() {}

func (dst *AuthenticationCleartextPassword) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationCleartextPassword", expectedLen: 4, actualLen: len(src)}
	}
	return nil
}

func (src *AuthenticationCleartextPassword) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeCleartextPassword)
	return finishMessage(dst, sp)
}

// AuthenticationMD5Password asks for an MD5-hashed password, salted with Salt.
type AuthenticationMD5Password struct {
	Salt [4]byte
}

func (*AuthenticationMD5Password) Backend() {}

func (dst *AuthenticationMD5Password) Decode(src []byte) error {
	if len(src) != 8 {
		return &invalidMessageLenErr{messageType: "AuthenticationMD5Password", expectedLen: 8, actualLen: len(src)}
	}
	copy(dst.Salt[:], src[4:8])
	return nil
}

func (src *AuthenticationMD5Password) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeMD5Password)
	dst = append(dst, src.Salt[:]...)
	return finishMessage(dst, sp)
}

// AuthenticationGSS indicates GSSAPI authentication should begin. The
// connector never completes a GSSAPI exchange; it decodes this solely to
// surface a clear "unsupported" error instead of hanging.
type AuthenticationGSS struct{}

func (*AuthenticationGSS) Backend() {}

func (dst *AuthenticationGSS) Decode(src []byte) error {
	if len(src) != 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationGSS", expectedLen: 4, actualLen: len(src)}
	}
	return nil
}

func (src *AuthenticationGSS) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeGSS)
	return finishMessage(dst, sp)
}

// AuthenticationGSSContinue carries a GSSAPI/SSPI challenge.
type AuthenticationGSSContinue struct {
	Data []byte
}

func (*AuthenticationGSSContinue) Backend() {}

func (dst *AuthenticationGSSContinue) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationGSSContinue", expectedLen: 4, actualLen: len(src)}
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationGSSContinue) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeGSSCont)
	dst = append(dst, src.Data...)
	return finishMessage(dst, sp)
}

// AuthenticationSASL lists the SASL mechanisms the server offers.
type AuthenticationSASL struct {
	AuthMechanisms []string
}

func (*AuthenticationSASL) Backend() {}

func (dst *AuthenticationSASL) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationSASL", expectedLen: 4, actualLen: len(src)}
	}

	rest := src[4:]
	dst.AuthMechanisms = dst.AuthMechanisms[:0]
	for len(rest) > 1 {
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return errors.New("bad authentication message")
		}
		dst.AuthMechanisms = append(dst.AuthMechanisms, string(rest[:idx]))
		rest = rest[idx+1:]
	}
	return nil
}

func (src *AuthenticationSASL) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASL)
	for _, s := range src.AuthMechanisms {
		dst = append(dst, s...)
		dst = append(dst, 0)
	}
	dst = append(dst, 0)
	return finishMessage(dst, sp)
}

// AuthenticationSASLContinue carries a SASL challenge.
type AuthenticationSASLContinue struct {
	Data []byte
}

func (*AuthenticationSASLContinue) Backend() {}

func (dst *AuthenticationSASLContinue) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationSASLContinue", expectedLen: 4, actualLen: len(src)}
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLContinue) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASLContinue)
	dst = append(dst, src.Data...)
	return finishMessage(dst, sp)
}

// AuthenticationSASLFinal reports that the SASL exchange succeeded and
// carries the server's final verification data.
type AuthenticationSASLFinal struct {
	Data []byte
}

func (*AuthenticationSASLFinal) Backend() {}

func (dst *AuthenticationSASLFinal) Decode(src []byte) error {
	if len(src) < 4 {
		return &invalidMessageLenErr{messageType: "AuthenticationSASLFinal", expectedLen: 4, actualLen: len(src)}
	}
	dst.Data = src[4:]
	return nil
}

func (src *AuthenticationSASLFinal) Encode(dst []byte) []byte {
	dst, sp := beginMessage(dst, 'R')
	dst = pgio.AppendUint32(dst, AuthTypeSASLFinal)
	dst = append(dst, src.Data...)
	return finishMessage(dst, sp)
}
