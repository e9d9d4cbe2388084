package agent

import (
	"strconv"
	"strings"

	"nullprogram.com/x/opengpg-core/pgperr"
)

// InquiryResponse is what a handler returns for one INQUIRE: either
// zero or more D-line chunks to send (terminated with END by the
// caller), or Cancel to send CAN instead.
type InquiryResponse struct {
	Data   [][]byte
	Cancel bool
}

// InquiryHandler answers one INQUIRE <keyword> [params...] from the
// agent. Any keyword the handler does not recognise
// should fall through to DefaultInquiryHandler's CAN behavior.
type InquiryHandler func(keyword string, params []string) (InquiryResponse, error)

// Recognised inquiry keywords.
const (
	InquiryPinentryLaunched = "PINENTRY_LAUNCHED"
	InquiryPassphrase       = "PASSPHRASE"
	InquiryNewPassphrase    = "NEWPASSPHRASE"
	InquiryKeyParam         = "KEYPARAM"
	InquiryKeyData          = "KEYDATA"
	InquiryCertData         = "CERTDATA"
	InquiryCiphertext       = "CIPHERTEXT"
	InquiryTargetCert       = "TARGETCERT"
	InquiryKeyblock         = "KEYBLOCK"
	InquiryKeyblockInfo     = "KEYBLOCK_INFO"
)

// DefaultInquiryHandler cancels every inquiry. Callers that need
// GENKEY, PKSIGN, PKDECRYPT, or similar must install their own
// handler (see Session below) before issuing the command
// that triggers the corresponding INQUIRE.
func DefaultInquiryHandler(keyword string, params []string) (InquiryResponse, error) {
	return InquiryResponse{Cancel: true}, nil
}

// Session is a convenience InquiryHandler builder: it answers
// PINENTRY_LAUNCHED by ignoring it (forwarded to a UI callback if one
// is set), supplies a fixed passphrase/new-passphrase when one is
// configured, and forwards KEYPARAM/KEYDATA/CERTDATA/CIPHERTEXT/
// TARGETCERT/KEYBLOCK/KEYBLOCK_INFO payloads from caller-supplied
// bytes, canceling anything else.
type Session struct {
	Passphrase    []byte
	NewPassphrase []byte
	KeyParam      []byte
	KeyData       []byte
	CertData      []byte
	Ciphertext    []byte
	TargetCert    []byte
	Keyblock      []byte
	KeyblockInfo  []byte
	OnPinentry    func(params []string)
}

// Handler returns an InquiryHandler bound to this session's fields.
func (s *Session) Handler() InquiryHandler {
	return func(keyword string, params []string) (InquiryResponse, error) {
		switch keyword {
		case InquiryPinentryLaunched:
			if s.OnPinentry != nil {
				s.OnPinentry(params)
			}
			return InquiryResponse{}, nil
		case InquiryPassphrase:
			if s.Passphrase == nil {
				return InquiryResponse{Cancel: true}, nil
			}
			return InquiryResponse{Data: [][]byte{s.Passphrase}}, nil
		case InquiryNewPassphrase:
			if s.NewPassphrase == nil {
				return InquiryResponse{Cancel: true}, nil
			}
			return InquiryResponse{Data: [][]byte{s.NewPassphrase}}, nil
		case InquiryKeyParam:
			return dataOrCancel(s.KeyParam)
		case InquiryKeyData:
			return dataOrCancel(s.KeyData)
		case InquiryCertData:
			return dataOrCancel(s.CertData)
		case InquiryCiphertext:
			return dataOrCancel(s.Ciphertext)
		case InquiryTargetCert:
			return dataOrCancel(s.TargetCert)
		case InquiryKeyblock:
			return dataOrCancel(s.Keyblock)
		case InquiryKeyblockInfo:
			return dataOrCancel(s.KeyblockInfo)
		default:
			return InquiryResponse{Cancel: true}, nil
		}
	}
}

func dataOrCancel(b []byte) (InquiryResponse, error) {
	if b == nil {
		return InquiryResponse{Cancel: true}, nil
	}
	return InquiryResponse{Data: [][]byte{b}}, nil
}

// encodePercent percent-escapes raw bytes for a D line: '%', '+',
// every control byte below 0x20 (including '\r', '\n' and NUL), and any
// byte above 0x7E round-trip as %XX; everything else passes through
// unescaped. '+' must be escaped because
// decodePercent maps a literal '+' back to space.
func encodePercent(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c == '%' || c == '+' || c == '\r' || c == '\n' || c < 0x20 || c > 0x7E:
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(hexByte(c)))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func hexByte(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0xF]})
}

// decodePercent is the inverse of encodePercent: "%XX" decodes to one
// byte, "+" decodes to space, anything else passes through unchanged.
func decodePercent(s string) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			out = append(out, ' ')
		case '%':
			if i+2 >= len(s) {
				return nil, pgperr.E("agent.decodePercent", pgperr.SourceAgent, pgperr.AgentProtocol, "reason", "truncated percent escape")
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return nil, pgperr.E("agent.decodePercent", pgperr.SourceAgent, pgperr.AgentProtocol, "reason", "bad percent escape")
			}
			out = append(out, byte(n))
			i += 2
		default:
			out = append(out, s[i])
		}
	}
	return out, nil
}

// EncodeDesc percent+plus-escapes free text for SETKEYDESC, where
// spaces must become '+' rather than pass through literally.
func EncodeDesc(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case c == '%' || c == '+' || c < 0x20 || c > 0x7E:
			b.WriteByte('%')
			b.WriteString(hexByte(c))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
