package agent

import (
	"encoding/hex"
	"fmt"
	"strings"

	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// HaveKey asks whether the agent holds any of the given keygrips:
// OK if at least one is available, NO_SECKEY otherwise
// surfaces as pgperr.NoSecretKey.
func (c *Conn) HaveKey(grips ...[20]byte) error {
	args := make([]string, len(grips))
	for i, g := range grips {
		args[i] = strings.ToUpper(hex.EncodeToString(g[:]))
	}
	_, err := c.Transact("HAVEKEY " + strings.Join(args, " "))
	if err != nil {
		return pgperr.E("agent.HaveKey", pgperr.SourceAgent, pgperr.NoSecretKey, "cause", err)
	}
	return nil
}

// KeyInfoResult names where a secret key actually lives.
type KeyInfoResult struct {
	Grip    string
	Storage string // "D" local disk, token serial, or "-" unknown
	Serial  string
}

// KeyInfo returns the storage location for one keygrip.
func (c *Conn) KeyInfo(grip [20]byte) (KeyInfoResult, error) {
	reply, err := c.Transact("KEYINFO " + strings.ToUpper(hex.EncodeToString(grip[:])))
	if err != nil {
		return KeyInfoResult{}, err
	}
	sl, ok := reply.Find("KEYINFO")
	if !ok || len(sl.Args) < 2 {
		return KeyInfoResult{}, pgperr.E("agent.KeyInfo", pgperr.SourceAgent, pgperr.AgentProtocol, "reason", "missing KEYINFO status")
	}
	res := KeyInfoResult{Grip: sl.Args[0], Storage: sl.Args[1]}
	if len(sl.Args) >= 3 {
		res.Serial = sl.Args[2]
	}
	return res, nil
}

// GenKeyResult is the outcome of a GENKEY transaction: the newly
// minted public key plus any cache-nonce the agent handed back for
// reuse within the same key-generation sequence - a cache-nonce
// returned by the first agent call is passed to subsequent calls so
// the agent can skip re-prompting for the passphrase.
type GenKeyResult struct {
	PublicKey  *packet.PublicKey
	CreatedAt  uint32
	CacheNonce string
}

// GenKey asks the agent for a fresh key via the given genkey
// S-expression parameters (e.g. `(genkey(rsa(nbits "2048")))`). When
// noProtection is true the new key is stored without a passphrase
// (transient/demo keys). GenKey answers the KEYPARAM inquiry itself
// from params; every other inquiry (PASSPHRASE, NEWPASSPHRASE, ...) is
// passed to the Conn's configured Inquiry handler, which is restored
// when GenKey returns.
func (c *Conn) GenKey(params string, noProtection bool, cacheNonce string) (GenKeyResult, error) {
	prev := c.Inquiry
	keyParam := []byte(params)
	c.Inquiry = func(keyword string, args []string) (InquiryResponse, error) {
		if keyword == InquiryKeyParam {
			return dataOrCancel(keyParam)
		}
		if prev == nil {
			return InquiryResponse{Cancel: true}, nil
		}
		return prev(keyword, args)
	}
	defer func() { c.Inquiry = prev }()

	req := "GENKEY"
	if noProtection {
		req += " --no-protection"
	}
	if cacheNonce != "" {
		req += " " + cacheNonce
	}
	reply, err := c.Transact(req)
	if err != nil {
		return GenKeyResult{}, err
	}
	pk, err := ParsePublicKeySExpr(reply.Data)
	if err != nil {
		return GenKeyResult{}, err
	}
	var res GenKeyResult
	res.PublicKey = pk
	if sl, ok := reply.Find("KEY-CREATED-AT"); ok && len(sl.Args) == 1 {
		fmt.Sscanf(sl.Args[0], "%d", &res.CreatedAt)
		pk.Timestamp = res.CreatedAt
	}
	if sl, ok := reply.Find("CACHE_NONCE"); ok && len(sl.Args) == 1 {
		res.CacheNonce = sl.Args[0]
		c.cacheNonce = sl.Args[0]
	}
	return res, nil
}

// ReadKey returns the public-key S-expression for a keygrip, decoded
// into a packet.PublicKey. scd selects the smartcard variant.
func (c *Conn) ReadKey(grip [20]byte, scd bool) (*packet.PublicKey, error) {
	req := "READKEY "
	if scd {
		req += "SCD "
	}
	req += strings.ToUpper(hex.EncodeToString(grip[:]))
	reply, err := c.Transact(req)
	if err != nil {
		return nil, err
	}
	return ParsePublicKeySExpr(reply.Data)
}

// Sign implements sigbuilder.Signer over this connection: SIGKEY,
// SETKEYDESC, SETHASH, PKSIGN in sequence.
func (c *Conn) Sign(keygrip [20]byte, pkAlgo packet.Algorithm, hashAlgo byte, digest []byte) (packet.SigValue, error) {
	if _, err := c.Transact("SIGKEY " + strings.ToUpper(hex.EncodeToString(keygrip[:]))); err != nil {
		return nil, err
	}
	desc := EncodeDesc(fmt.Sprintf("Signing a document with key %X.", keygrip))
	if _, err := c.Transact("SETKEYDESC " + desc); err != nil {
		return nil, err
	}
	if _, err := c.Transact(fmt.Sprintf("SETHASH %d %s", hashAlgo, strings.ToUpper(hex.EncodeToString(digest)))); err != nil {
		return nil, err
	}
	req := "PKSIGN"
	if c.cacheNonce != "" {
		req += " " + c.cacheNonce
	}
	reply, err := c.Transact(req)
	if err != nil {
		return nil, err
	}
	return ParseSigValue(pkAlgo, reply.Data)
}

// PKDecrypt decrypts ciphertext under the key named by keygrip,
// returning the plaintext value inquired back as `(5:value N:...)`.
func (c *Conn) PKDecrypt(keygrip [20]byte, ciphertext []byte) ([]byte, error) {
	if _, err := c.Transact("SETKEY " + strings.ToUpper(hex.EncodeToString(keygrip[:]))); err != nil {
		return nil, err
	}
	sess := Session{Ciphertext: ciphertext}
	c.Inquiry = sess.Handler()
	reply, err := c.Transact("PKDECRYPT")
	if err != nil {
		return nil, err
	}
	root, _, err := parseSExpr(reply.Data)
	if err != nil {
		return nil, err
	}
	list, ok := root.(sList)
	if !ok || len(list) != 2 {
		return nil, malformedSExpr("pkdecrypt: expected (value N)")
	}
	tag, ok := list[0].(sAtom)
	if !ok || string(tag) != "value" {
		return nil, malformedSExpr("pkdecrypt: missing value tag")
	}
	plain, ok := list[1].(sAtom)
	if !ok {
		return nil, malformedSExpr("pkdecrypt: missing plaintext atom")
	}
	return []byte(plain), nil
}

// ImportKey asks the agent to import secret-key material supplied via
// the KEYDATA inquiry.
func (c *Conn) ImportKey(keyData []byte) error {
	sess := Session{KeyData: keyData}
	c.Inquiry = sess.Handler()
	_, err := c.Transact("IMPORT_KEY")
	return err
}

// ExportKey asks the agent to export secret-key material for grip,
// returning the raw KEYDATA bytes.
func (c *Conn) ExportKey(grip [20]byte) ([]byte, error) {
	reply, err := c.Transact("EXPORT_KEY " + strings.ToUpper(hex.EncodeToString(grip[:])))
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

// DeleteKey removes a secret key from the agent's store.
func (c *Conn) DeleteKey(grip [20]byte) error {
	_, err := c.Transact("DELETE_KEY " + strings.ToUpper(hex.EncodeToString(grip[:])))
	return err
}

// Passwd changes the passphrase protecting a secret key.
func (c *Conn) Passwd(grip [20]byte) error {
	_, err := c.Transact("PASSWD " + strings.ToUpper(hex.EncodeToString(grip[:])))
	return err
}

// KeywrapKey asks the agent to wrap or unwrap a session key for
// transport; forWrap selects the direction.
func (c *Conn) KeywrapKey(forWrap bool) error {
	req := "KEYWRAP_KEY "
	if forWrap {
		req += "--export"
	} else {
		req += "--import"
	}
	_, err := c.Transact(req)
	return err
}
