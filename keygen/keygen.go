package keygen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nullprogram.com/x/opengpg-core/agent"
	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/keyblock"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
	"nullprogram.com/x/opengpg-core/pgperr"
	"nullprogram.com/x/opengpg-core/pgplog"
	"nullprogram.com/x/opengpg-core/prefs"
)

// QuickGenerate builds the default Parameters for "quick" mode: an
// RSA-2048 primary (certify+sign) bound to one user id, plus an
// RSA-2048 encryption subkey - the default algorithm and size per
// spec.md §8 seed scenario S1.
func QuickGenerate(uid string) Parameters {
	return Parameters{
		KeyType:      "RSA",
		KeyLength:    2048,
		KeyUsage:     []string{"sign", "cert"},
		SubkeyType:   "RSA",
		SubkeyLength: 2048,
		SubkeyUsage:  []string{"encrypt"},
		NameReal:     uid,
	}
}

// genKeyParamSExpr builds the GENKEY S-expression parameter block for
// an algorithm/size/curve combination, e.g.
// `(genkey(rsa(nbits "2048")))`, `(genkey(ecc(curve "Ed25519")(flags eddsa)))`.
func genKeyParamSExpr(algo packet.Algorithm, bits int, curve packet.Curve) string {
	switch algo {
	case packet.AlgoRSAEncryptSign, packet.AlgoRSAEncryptOnly, packet.AlgoRSASignOnly:
		return fmt.Sprintf(`(genkey(rsa(nbits "%d")))`, bits)
	case packet.AlgoDSA:
		return fmt.Sprintf(`(genkey(dsa(nbits "%d")(qbits "%d")))`, bits, DSAQSize(bits))
	case packet.AlgoElgamalEncrypt:
		return fmt.Sprintf(`(genkey(elg(nbits "%d")))`, bits)
	case packet.AlgoEdDSA:
		return fmt.Sprintf(`(genkey(ecc(curve "%s")(flags eddsa)))`, curve.Name)
	case packet.AlgoECDSA:
		return fmt.Sprintf(`(genkey(ecc(curve "%s")))`, curve.Name)
	case packet.AlgoECDH:
		return fmt.Sprintf(`(genkey(ecc(curve "%s")(flags djb-tweak)))`, curve.Name)
	default:
		return ""
	}
}

func resolveKeySize(algo packet.Algorithm, requested int, curveName string, p Parameters) (int, packet.Curve, error) {
	switch algo {
	case packet.AlgoRSAEncryptSign, packet.AlgoRSAEncryptOnly, packet.AlgoRSASignOnly:
		return RSAKeySize(requested, p.AllowLargeRSA), packet.Curve{}, nil
	case packet.AlgoElgamalEncrypt:
		return ElgamalKeySize(requested), packet.Curve{}, nil
	case packet.AlgoDSA:
		return DSAKeySize(requested, p.Expert), packet.Curve{}, nil
	case packet.AlgoEdDSA, packet.AlgoECDSA, packet.AlgoECDH:
		name := curveName
		if name == "" {
			name = "Ed25519"
		}
		c, ok := packet.CurveByName(name)
		if !ok {
			return 0, packet.Curve{}, pgperr.E("keygen.resolveKeySize", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", name)
		}
		return ECCBitSize(c), c, nil
	default:
		return 0, packet.Curve{}, pgperr.E("keygen.resolveKeySize", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(algo))
	}
}

func usageFlags(usage []string) byte {
	var flags byte
	for _, u := range usage {
		switch u {
		case "sign":
			flags |= packet.KeyFlagSign
		case "cert":
			flags |= packet.KeyFlagCertify
		case "encrypt":
			flags |= packet.KeyFlagEncryptCommunications | packet.KeyFlagEncryptStorage
		case "auth":
			flags |= packet.KeyFlagAuthenticate
		}
	}
	return flags
}

// Source supplies fresh key material for the GENKEY step of the
// generation sequence. *agent.Conn implements it directly; a caller
// with no agent reachable can supply a software-backed Source instead
// (see localsign.LocalSource), keeping Generate itself agnostic to
// where the key material actually comes from.
type Source interface {
	GenKey(params string, noProtection bool, cacheNonce string) (agent.GenKeyResult, error)
}

// Result is what Generate hands back on success: the assembled key
// material plus the handle correlating this run's KEY_CREATED status
// line to the request that produced it. On failure Generate returns no
// Result, so the minted handle is not available to the caller.
type Result struct {
	Keyblock *keyblock.Keyblock
	Handle   string
}

// Generate runs the key-generation sequence end to end: GENKEY the
// primary, self-sign it, GENKEY the subkey (if requested), bind it
// with a back-signature from the subkey when it is signing-capable,
// and assemble the result into a Keyblock.
func Generate(src Source, p Parameters, signer sigbuilder.Signer, now func() time.Time) (*Result, error) {
	handle := p.Handle
	if handle == "" {
		handle = uuid.New().String()
	}
	pgplog.Log.Debug("key generation starting", "handle", handle, "key_type", p.KeyType, "subkey_type", p.SubkeyType)

	created, err := ResolveCreation(p.CreationDate, now)
	if err != nil {
		return nil, err
	}

	primaryAlgo, err := AlgoFromKeyType(p.KeyType)
	if err != nil {
		return nil, err
	}
	primaryBits, primaryCurve, err := resolveKeySize(primaryAlgo, p.KeyLength, p.KeyCurve, p)
	if err != nil {
		return nil, err
	}

	gk, err := src.GenKey(genKeyParamSExpr(primaryAlgo, primaryBits, primaryCurve), p.NoProtection || p.TransientKey, "")
	if err != nil {
		return nil, err
	}
	pgplog.Log.Debug("primary key minted", "handle", handle)
	primary := gk.PublicKey
	primary.Version = 4
	if primary.Timestamp == 0 {
		primary.Timestamp = uint32(created.Unix())
	}
	primaryGrip, err := identity.Keygrip(primary)
	if err != nil {
		return nil, err
	}

	uid := &packet.UserID{ID: []byte(formatUID(p))}

	pref := prefs.Default()
	if p.Preferences != "" {
		parsed, warnings, err := prefs.Parse(p.Preferences)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			pgplog.Log.Warn("preference token dropped", "token", w.Token, "reason", w.Reason)
		}
		pref = parsed
	}

	usage := p.KeyUsage
	if len(usage) == 0 {
		usage = []string{"sign", "cert"}
	}
	hashed := []packet.Subpacket{
		{Type: packet.SubKeyFlags, Data: []byte{usageFlags(usage)}},
		{Type: packet.SubPreferredSymmetric, Data: pref.Symmetric},
		{Type: packet.SubPreferredHash, Data: pref.Hash},
		{Type: packet.SubPreferredCompression, Data: pref.Compression},
	}
	if pref.MDC {
		hashed = append(hashed, packet.Subpacket{Type: packet.SubFeatures, Data: []byte{packet.FeatureMDC}})
	}
	if expSecs, err := ResolveExpiry(p.ExpireDate, created); err == nil && expSecs != 0 {
		hashed = append(hashed, packet.Subpacket{Type: packet.SubKeyExpiration, Data: marshal32(expSecs)})
	} else if err != nil {
		return nil, err
	}
	if p.Revoker != "" {
		rk, err := parseRevoker(p.Revoker)
		if err == nil {
			hashed = append(hashed, packet.Subpacket{Type: packet.SubRevocationKey, Data: rk.Encode()})
		}
	}

	selfSig, err := sigbuilder.Sign(
		sigbuilder.Target{Primary: primary, UserID: uid},
		packet.SigPositiveCertification, sigbuilder.HashSHA256, signer, primaryGrip,
		sigbuilder.Options{Created: created, Hashed: hashed},
	)
	if err != nil {
		return nil, err
	}

	var subkeys []*keyblock.SubkeyNode
	if p.SubkeyType != "" {
		subAlgo, err := AlgoFromKeyType(p.SubkeyType)
		if err != nil {
			return nil, err
		}
		subBits, subCurve, err := resolveKeySize(subAlgo, p.SubkeyLength, p.SubkeyCurve, p)
		if err != nil {
			return nil, err
		}
		sgk, err := src.GenKey(genKeyParamSExpr(subAlgo, subBits, subCurve), p.NoProtection || p.TransientKey, gk.CacheNonce)
		if err != nil {
			return nil, err
		}
		subkey := sgk.PublicKey
		subkey.Version = 4
		subkey.IsSubkey = true
		if subkey.Timestamp == 0 {
			subkey.Timestamp = uint32(created.Unix())
		}
		subGrip, err := identity.Keygrip(subkey)
		if err != nil {
			return nil, err
		}

		subUsage := p.SubkeyUsage
		if len(subUsage) == 0 {
			subUsage = []string{"encrypt"}
		}
		subFlags := usageFlags(subUsage)
		subHashed := []packet.Subpacket{{Type: packet.SubKeyFlags, Data: []byte{subFlags}}}

		var backSig *packet.Signature
		if subFlags&packet.KeyFlagSign != 0 {
			// Cross-cert: the subkey signs the primary before the
			// binding is built, so the back-signature can be embedded
			// in the binding's hashed area.
			backSig, err = sigbuilder.Sign(
				sigbuilder.Target{Primary: primary, Subkey: subkey},
				packet.SigPrimaryKeyBinding, sigbuilder.HashSHA256, signer, subGrip,
				sigbuilder.Options{Created: created},
			)
			if err != nil {
				return nil, err
			}
			backBody, err := backSig.Body()
			if err != nil {
				return nil, err
			}
			subHashed = append(subHashed, packet.Subpacket{Type: packet.SubEmbeddedSignature, Data: backBody})
		}

		binding, err := sigbuilder.Sign(
			sigbuilder.Target{Primary: primary, Subkey: subkey},
			packet.SigSubkeyBinding, sigbuilder.HashSHA256, signer, primaryGrip,
			sigbuilder.Options{Created: created, Hashed: subHashed},
		)
		if err != nil {
			return nil, err
		}
		subkeys = append(subkeys, &keyblock.SubkeyNode{Key: subkey, Binding: binding})
	}

	kb, err := keyblock.Assemble(primary,
		[]*keyblock.UIDNode{{UserID: uid, Certs: []*packet.Signature{selfSig}}},
		subkeys, nil)
	if err != nil {
		return nil, err
	}
	pgplog.Log.Debug("key generation complete", "handle", handle)
	return &Result{Keyblock: kb, Handle: handle}, nil
}

func formatUID(p Parameters) string {
	s := p.NameReal
	if p.NameComment != "" {
		s += " (" + p.NameComment + ")"
	}
	if p.NameEmail != "" {
		s += " <" + p.NameEmail + ">"
	}
	return s
}

func marshal32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func parseRevoker(spec string) (packet.RevocationKey, error) {
	// "algo:fingerprint[:sensitive]" - supplemented from
	// original_source/g10/keygen.c's add_revoker parsing.
	var rk packet.RevocationKey
	fields := strings.Split(spec, ":")
	if len(fields) < 2 || len(fields) > 3 || (len(fields) == 3 && !strings.EqualFold(fields[2], "sensitive")) {
		return rk, pgperr.E("keygen.parseRevoker", pgperr.SourceCore, pgperr.Internal, "reason", "malformed Revoker parameter")
	}
	algoTok, fprTok := fields[0], fields[1]
	if len(fields) == 3 {
		rk.Class = 0x40
	}
	algoNum, err := AlgoFromKeyType(algoTok)
	if err != nil {
		return rk, err
	}
	rk.AlgoID = algoNum
	if len(fprTok) != 40 {
		return rk, pgperr.E("keygen.parseRevoker", pgperr.SourceCore, pgperr.Internal, "reason", "revoker fingerprint must be 40 hex chars")
	}
	var fpr [20]byte
	for i := 0; i < 20; i++ {
		var b int
		if _, err := fmt.Sscanf(fprTok[i*2:i*2+2], "%02x", &b); err != nil {
			return rk, pgperr.E("keygen.parseRevoker", pgperr.SourceCore, pgperr.Internal, "reason", "bad hex in revoker fingerprint")
		}
		fpr[i] = byte(b)
	}
	rk.Fingerprint = fpr
	return rk, nil
}
