// Package localsign implements sigbuilder.Signer directly over an
// in-process private key, for the transient/no-agent signing path (an
// argon2-derived Ed25519 key signed straight from the CLI process, no
// agent involved). The real deployment path goes through agent.Conn;
// this package exists so the engine still has a working signer when no
// agent is reachable.
package localsign

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck // DSA support tracks the engine's closed algorithm set
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"strconv"
	"strings"

	"github.com/cloudflare/circl/dh/x448"
	"github.com/cloudflare/circl/sign/ed448"

	"nullprogram.com/x/opengpg-core/agent"
	"nullprogram.com/x/opengpg-core/openpgp/identity"
	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/openpgp/sigbuilder"
	"nullprogram.com/x/opengpg-core/pgperr"
)

func hashForPKCS1(algo byte) (crypto.Hash, error) {
	switch algo {
	case sigbuilder.HashSHA1:
		return crypto.SHA1, nil
	case sigbuilder.HashSHA256:
		return crypto.SHA256, nil
	case sigbuilder.HashSHA384:
		return crypto.SHA384, nil
	case sigbuilder.HashSHA512:
		return crypto.SHA512, nil
	case sigbuilder.HashSHA224:
		return crypto.SHA224, nil
	default:
		return 0, pgperr.E("localsign.hashForPKCS1", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "hash_algo", algo)
	}
}

// Key is a single in-process secret key, keyed by the same grip
// identity.Keygrip would compute for its public half.
type Key struct {
	Grip    [20]byte
	Algo    packet.Algorithm
	RSA     *rsa.PrivateKey
	DSA     *dsa.PrivateKey
	ECDSA   *ecdsa.PrivateKey
	ECDH    *ecdh.PrivateKey
	X448    *x448.Key // ECDH over X448, which crypto/ecdh does not support
	Ed25519 ed25519.PrivateKey
	Ed448   ed448.PrivateKey
}

// Signer holds every local key a generation or signing sequence might
// need, dispatching Sign by keygrip - the same lookup an agent would
// do internally, just in-process.
type Signer struct {
	keys map[[20]byte]Key
}

// NewSigner builds an empty local signer; callers add keys with Add.
func NewSigner() *Signer { return &Signer{keys: map[[20]byte]Key{}} }

// Add registers a key under its grip.
func (s *Signer) Add(k Key) { s.keys[k.Grip] = k }

// Sign implements sigbuilder.Signer.
func (s *Signer) Sign(keygrip [20]byte, pkAlgo packet.Algorithm, hashAlgo byte, digest []byte) (packet.SigValue, error) {
	k, ok := s.keys[keygrip]
	if !ok {
		return nil, pgperr.E("localsign.Sign", pgperr.SourceCore, pgperr.UnknownKeygrip)
	}
	switch pkAlgo {
	case packet.AlgoRSAEncryptSign, packet.AlgoRSASignOnly:
		if k.RSA == nil {
			return nil, missingKey("rsa")
		}
		h, err := hashForPKCS1(hashAlgo)
		if err != nil {
			return nil, err
		}
		sig, err := rsa.SignPKCS1v15(rand.Reader, k.RSA, h, digest)
		if err != nil {
			return nil, pgperr.E("localsign.Sign", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		return packet.OneInt{S: new(big.Int).SetBytes(sig)}, nil
	case packet.AlgoDSA:
		if k.DSA == nil {
			return nil, missingKey("dsa")
		}
		r, sVal, err := dsa.Sign(rand.Reader, k.DSA, digest)
		if err != nil {
			return nil, pgperr.E("localsign.Sign", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		return packet.TwoInt{R: r, S: sVal}, nil
	case packet.AlgoECDSA:
		if k.ECDSA == nil {
			return nil, missingKey("ecdsa")
		}
		r, sVal, err := ecdsa.Sign(rand.Reader, k.ECDSA, digest)
		if err != nil {
			return nil, pgperr.E("localsign.Sign", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		return packet.TwoInt{R: r, S: sVal}, nil
	case packet.AlgoEdDSA:
		if k.Ed25519 != nil {
			sig := ed25519.Sign(k.Ed25519, digest)
			half := len(sig) / 2
			return packet.TwoInt{R: new(big.Int).SetBytes(sig[:half]), S: new(big.Int).SetBytes(sig[half:])}, nil
		}
		if k.Ed448 != nil {
			sig := ed448.Sign(k.Ed448, digest, "")
			half := len(sig) / 2
			return packet.TwoInt{R: new(big.Int).SetBytes(sig[:half]), S: new(big.Int).SetBytes(sig[half:])}, nil
		}
		return nil, missingKey("eddsa")
	default:
		return nil, pgperr.E("localsign.Sign", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(pkAlgo))
	}
}

func missingKey(family string) error {
	return pgperr.E("localsign.Sign", pgperr.SourceCore, pgperr.UnknownKeygrip, "family", family)
}

// Verifier implements sigbuilder.Verifier purely from public key
// material, no agent or local secret needed.
type Verifier struct{}

func (Verifier) Verify(pk *packet.PublicKey, hashAlgo byte, digest []byte, value packet.SigValue) error {
	switch m := pk.Material.(type) {
	case *packet.RSAMaterial:
		v, ok := value.(packet.OneInt)
		if !ok {
			return badValue()
		}
		h, err := hashForPKCS1(hashAlgo)
		if err != nil {
			return err
		}
		pub := &rsa.PublicKey{N: m.N, E: int(m.E.Int64())}
		if err := rsa.VerifyPKCS1v15(pub, h, digest, v.S.Bytes()); err != nil {
			return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.BadSignature, "cause", err)
		}
		return nil
	case *packet.DSAMaterial:
		v, ok := value.(packet.TwoInt)
		if !ok {
			return badValue()
		}
		pub := &dsa.PublicKey{Parameters: dsa.Parameters{P: m.P, Q: m.Q, G: m.G}, Y: m.Y}
		if !dsa.Verify(pub, digest, v.R, v.S) {
			return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.BadSignature)
		}
		return nil
	case *packet.ECDSAMaterial:
		v, ok := value.(packet.TwoInt)
		if !ok {
			return badValue()
		}
		curve, err := stdCurve(m.Curve.Name)
		if err != nil {
			return err
		}
		x, y := elliptic.Unmarshal(curve, m.Q)
		if x == nil {
			return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "bad EC point")
		}
		pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
		if !ecdsa.Verify(pub, digest, v.R, v.S) {
			return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.BadSignature)
		}
		return nil
	case *packet.EdDSAMaterial:
		v, ok := value.(packet.TwoInt)
		if !ok {
			return badValue()
		}
		sig := append(leftPad(v.R.Bytes(), m.Curve.FieldBytes), leftPad(v.S.Bytes(), m.Curve.FieldBytes)...)
		switch m.Curve.Name {
		case "Ed25519":
			if !ed25519.Verify(ed25519.PublicKey(stripPrefix(m.Q)), digest, sig) {
				return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.BadSignature)
			}
			return nil
		case "Ed448":
			if !ed448.Verify(ed448.PublicKey(stripPrefix(m.Q)), digest, sig, "") {
				return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.BadSignature)
			}
			return nil
		default:
			return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", m.Curve.Name)
		}
	default:
		return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "algo", byte(pk.Algo()))
	}
}

func badValue() error {
	return pgperr.E("localsign.Verify", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "signature value shape mismatch")
}

func stripPrefix(q []byte) []byte {
	if len(q) > 0 && q[0] == 0x40 {
		return q[1:]
	}
	return q
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

func stdCurve(name string) (elliptic.Curve, error) {
	switch name {
	case "NIST P-256":
		return elliptic.P256(), nil
	case "NIST P-384":
		return elliptic.P384(), nil
	case "NIST P-521":
		return elliptic.P521(), nil
	default:
		return nil, pgperr.E("localsign.stdCurve", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", name)
	}
}

// LocalSource implements keygen.Source by generating key material
// in-process instead of asking an agent for it, registering each new
// secret into an attached Signer as it's minted. This is the no-agent
// counterpart to Signer.Sign: together they let the generation
// sequence run end to end without a live agent.Conn.
type LocalSource struct {
	Signer *Signer
}

// NewLocalSource builds a LocalSource backed by a fresh Signer.
func NewLocalSource() *LocalSource {
	return &LocalSource{Signer: NewSigner()}
}

// GenKey implements keygen.Source. params is one of the GENKEY
// S-expressions keygen.genKeyParamSExpr builds; this parses just
// enough of that fixed shape to pick an algorithm and size.
func (l *LocalSource) GenKey(params string, noProtection bool, cacheNonce string) (agent.GenKeyResult, error) {
	kind, nbits, curveName := parseGenKeyParams(params)

	var material packet.KeyMaterial
	var key Key

	switch kind {
	case "rsa":
		if nbits == 0 {
			nbits = 2048
		}
		priv, err := rsa.GenerateKey(rand.Reader, nbits)
		if err != nil {
			return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		material = &packet.RSAMaterial{AlgoID: packet.AlgoRSAEncryptSign, N: priv.N, E: big.NewInt(int64(priv.E))}
		key = Key{Algo: packet.AlgoRSAEncryptSign, RSA: priv}
	case "dsa":
		var dsaParams dsa.Parameters
		if err := dsa.GenerateParameters(&dsaParams, rand.Reader, dsaParameterSizes(nbits)); err != nil {
			return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		priv := &dsa.PrivateKey{PublicKey: dsa.PublicKey{Parameters: dsaParams}}
		if err := dsa.GenerateKey(priv, rand.Reader); err != nil {
			return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
		}
		material = &packet.DSAMaterial{P: dsaParams.P, Q: dsaParams.Q, G: dsaParams.G, Y: priv.Y}
		key = Key{Algo: packet.AlgoDSA, DSA: priv}
	case "elg":
		return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCore, pgperr.UnsupportedAlgorithm,
			"reason", "Elgamal key generation has no local software path; use an agent")
	case "ecc":
		curve, ok := packet.CurveByName(curveName)
		if !ok {
			return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", curveName)
		}
		switch {
		case strings.Contains(params, "eddsa"):
			switch curve.Name {
			case "Ed25519":
				pub, priv, err := ed25519.GenerateKey(rand.Reader)
				if err != nil {
					return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
				}
				material = &packet.EdDSAMaterial{Curve: curve, Q: append([]byte{0x40}, pub...)}
				key = Key{Algo: packet.AlgoEdDSA, Ed25519: priv}
			case "Ed448":
				pub, priv, err := ed448.GenerateKey(rand.Reader)
				if err != nil {
					return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
				}
				material = &packet.EdDSAMaterial{Curve: curve, Q: append([]byte{0x40}, []byte(pub)...)}
				key = Key{Algo: packet.AlgoEdDSA, Ed448: priv}
			default:
				return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", curve.Name)
			}
		case curve.X448:
			var priv, pub x448.Key
			if _, err := rand.Read(priv[:]); err != nil {
				return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
			}
			x448.KeyGen(&pub, &priv)
			material = &packet.ECDHMaterial{Curve: curve, Q: append([]byte{0x40}, pub[:]...), KDF: packet.KDFParams{HashAlgo: 10, SymAlgo: 9}}
			key = Key{Algo: packet.AlgoECDH, X448: &priv}
		case strings.Contains(params, "djb-tweak"), curve.X25519:
			ecdhCurve, err := stdECDHCurve(curve.Name)
			if err != nil {
				return agent.GenKeyResult{}, err
			}
			priv, err := ecdhCurve.GenerateKey(rand.Reader)
			if err != nil {
				return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
			}
			material = &packet.ECDHMaterial{Curve: curve, Q: append([]byte{0x40}, priv.PublicKey().Bytes()...), KDF: packet.KDFParams{HashAlgo: 8, SymAlgo: 9}}
			key = Key{Algo: packet.AlgoECDH, ECDH: priv}
		default:
			ecCurve, err := stdCurve(curve.Name)
			if err != nil {
				return agent.GenKeyResult{}, err
			}
			priv, err := ecdsa.GenerateKey(ecCurve, rand.Reader)
			if err != nil {
				return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCryptoLib, pgperr.Internal, "cause", err)
			}
			material = &packet.ECDSAMaterial{Curve: curve, Q: elliptic.Marshal(ecCurve, priv.X, priv.Y)}
			key = Key{Algo: packet.AlgoECDSA, ECDSA: priv}
		}
	default:
		return agent.GenKeyResult{}, pgperr.E("localsign.GenKey", pgperr.SourceCore, pgperr.MalformedPacket, "reason", "unrecognized genkey params: "+params)
	}

	pk := &packet.PublicKey{Version: 4, Material: material}
	grip, err := identity.Keygrip(pk)
	if err != nil {
		return agent.GenKeyResult{}, err
	}
	key.Grip = grip
	l.Signer.Add(key)

	return agent.GenKeyResult{PublicKey: pk, CacheNonce: cacheNonce}, nil
}

// parseGenKeyParams extracts the algorithm keyword and the quoted
// "nbits"/"curve" values out of the fixed genkey S-expression shapes
// keygen.genKeyParamSExpr produces.
func parseGenKeyParams(s string) (kind string, nbits int, curve string) {
	switch {
	case strings.Contains(s, "(rsa("):
		kind = "rsa"
	case strings.Contains(s, "(dsa("):
		kind = "dsa"
	case strings.Contains(s, "(elg("):
		kind = "elg"
	case strings.Contains(s, "(ecc("):
		kind = "ecc"
	}
	if v, ok := quotedAfter(s, `nbits "`); ok {
		nbits, _ = strconv.Atoi(v)
	}
	if v, ok := quotedAfter(s, `curve "`); ok {
		curve = v
	}
	return kind, nbits, curve
}

func quotedAfter(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(marker):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// dsaParameterSizes maps a requested bit length onto one of the fixed
// L,N pairs crypto/dsa supports.
func dsaParameterSizes(bits int) dsa.ParameterSizes {
	switch {
	case bits <= 1024:
		return dsa.L1024N160
	case bits <= 2048:
		return dsa.L2048N256
	default:
		return dsa.L3072N256
	}
}

func stdECDHCurve(name string) (ecdh.Curve, error) {
	switch name {
	case "Curve25519":
		return ecdh.X25519(), nil
	case "NIST P-256":
		return ecdh.P256(), nil
	case "NIST P-384":
		return ecdh.P384(), nil
	case "NIST P-521":
		return ecdh.P521(), nil
	default:
		return nil, pgperr.E("localsign.stdECDHCurve", pgperr.SourceCore, pgperr.UnsupportedCurve, "curve", name)
	}
}
