package agent

import (
	"math/big"
	"strconv"

	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// sNode is one node of a canonical S-expression: either an atom
// (sAtom) or a list (sList). The agent protocol exchanges canonical
// S-expressions exclusively (length-prefixed atoms, no advanced-mode
// display hints), so this parser only needs to handle that form.
type sNode interface{ isSNode() }

type sAtom []byte

func (sAtom) isSNode() {}

type sList []sNode

func (sList) isSNode() {}

// parseSExpr parses one canonical S-expression: "(" node* ")" or
// "N:data" for an atom of length N.
func parseSExpr(buf []byte) (sNode, []byte, error) {
	if len(buf) == 0 {
		return nil, buf, malformedSExpr("empty")
	}
	if buf[0] == '(' {
		var list sList
		rest := buf[1:]
		for {
			if len(rest) == 0 {
				return nil, buf, malformedSExpr("unterminated list")
			}
			if rest[0] == ')' {
				return list, rest[1:], nil
			}
			node, r, err := parseSExpr(rest)
			if err != nil {
				return nil, buf, err
			}
			list = append(list, node)
			rest = r
		}
	}
	i := 0
	for i < len(buf) && buf[i] >= '0' && buf[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, buf, malformedSExpr("expected atom length")
	}
	n, err := strconv.Atoi(string(buf[:i]))
	if err != nil || i >= len(buf) || buf[i] != ':' {
		return nil, buf, malformedSExpr("bad atom length")
	}
	start := i + 1
	if len(buf) < start+n {
		return nil, buf, malformedSExpr("truncated atom")
	}
	return sAtom(buf[start : start+n]), buf[start+n:], nil
}

func malformedSExpr(reason string) error {
	return pgperr.E("agent.parseSExpr", pgperr.SourceAgent, pgperr.AgentProtocol, "reason", reason)
}

// find returns the sublist whose first atom equals name, searching
// list's direct children only.
func (l sList) find(name string) (sList, bool) {
	for _, n := range l {
		if sub, ok := n.(sList); ok && len(sub) > 0 {
			if atom, ok := sub[0].(sAtom); ok && string(atom) == name {
				return sub, true
			}
		}
	}
	return nil, false
}

// value returns the atom value of the named field inside list, e.g.
// list.value("n") on (rsa (n #...#) (e #...#)).
func (l sList) value(name string) ([]byte, bool) {
	for _, n := range l {
		if sub, ok := n.(sList); ok && len(sub) == 2 {
			if atom, ok := sub[0].(sAtom); ok && string(atom) == name {
				if v, ok := sub[1].(sAtom); ok {
					return []byte(v), true
				}
			}
		}
	}
	return nil, false
}

// ParseSigValue decodes the "(sig-val ...)" S-expression PKSIGN
// returns into a packet.SigValue for the given algorithm.
func ParseSigValue(algo packet.Algorithm, raw []byte) (packet.SigValue, error) {
	root, _, err := parseSExpr(raw)
	if err != nil {
		return nil, err
	}
	top, ok := root.(sList)
	if !ok || len(top) < 2 {
		return nil, malformedSExpr("sig-val: not a list")
	}
	inner, ok := top[1].(sList)
	if !ok || len(inner) < 1 {
		return nil, malformedSExpr("sig-val: missing algorithm list")
	}
	switch algo {
	case packet.AlgoRSAEncryptSign, packet.AlgoRSASignOnly:
		s, ok := inner.value("s")
		if !ok {
			return nil, malformedSExpr("rsa sig-val: missing s")
		}
		return packet.OneInt{S: new(big.Int).SetBytes(s)}, nil
	case packet.AlgoDSA, packet.AlgoECDSA, packet.AlgoEdDSA:
		r, ok1 := inner.value("r")
		s, ok2 := inner.value("s")
		if !ok1 || !ok2 {
			return nil, malformedSExpr("sig-val: missing r/s")
		}
		return packet.TwoInt{R: new(big.Int).SetBytes(r), S: new(big.Int).SetBytes(s)}, nil
	default:
		return nil, pgperr.E("agent.ParseSigValue", pgperr.SourceAgent, pgperr.UnsupportedAlgorithm, "algo", byte(algo))
	}
}

// ParsePublicKeySExpr decodes the "(public-key ...)" S-expression
// GENKEY/READKEY return into a packet.PublicKey. Timestamp is left
// zero; the caller sets it from the KEY-CREATED-AT status line.
func ParsePublicKeySExpr(raw []byte) (*packet.PublicKey, error) {
	root, _, err := parseSExpr(raw)
	if err != nil {
		return nil, err
	}
	top, ok := root.(sList)
	if !ok || len(top) < 2 {
		return nil, malformedSExpr("public-key: not a list")
	}
	inner, ok := top[1].(sList)
	if !ok || len(inner) < 1 {
		return nil, malformedSExpr("public-key: missing algorithm list")
	}
	algoName, ok := inner[0].(sAtom)
	if !ok {
		return nil, malformedSExpr("public-key: missing algorithm name")
	}

	var material packet.KeyMaterial
	switch string(algoName) {
	case "rsa":
		n, ok1 := inner.value("n")
		e, ok2 := inner.value("e")
		if !ok1 || !ok2 {
			return nil, malformedSExpr("rsa public-key: missing n/e")
		}
		material = &packet.RSAMaterial{AlgoID: packet.AlgoRSAEncryptSign, N: new(big.Int).SetBytes(n), E: new(big.Int).SetBytes(e)}
	case "dsa":
		p, ok1 := inner.value("p")
		q, ok2 := inner.value("q")
		g, ok3 := inner.value("g")
		y, ok4 := inner.value("y")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, malformedSExpr("dsa public-key: missing parameter")
		}
		material = &packet.DSAMaterial{
			P: new(big.Int).SetBytes(p), Q: new(big.Int).SetBytes(q),
			G: new(big.Int).SetBytes(g), Y: new(big.Int).SetBytes(y),
		}
	case "elg":
		p, ok1 := inner.value("p")
		g, ok2 := inner.value("g")
		y, ok3 := inner.value("y")
		if !ok1 || !ok2 || !ok3 {
			return nil, malformedSExpr("elgamal public-key: missing parameter")
		}
		material = &packet.ElgamalMaterial{P: new(big.Int).SetBytes(p), G: new(big.Int).SetBytes(g), Y: new(big.Int).SetBytes(y)}
	case "ecc", "ecdsa", "eddsa":
		curveName, ok := inner.value("curve")
		q, ok2 := inner.value("q")
		if !ok || !ok2 {
			return nil, malformedSExpr("ecc public-key: missing curve/q")
		}
		curve, ok := packet.CurveByName(string(curveName))
		if !ok {
			return nil, pgperr.E("agent.ParsePublicKeySExpr", pgperr.SourceAgent, pgperr.UnsupportedCurve, "curve", string(curveName))
		}
		_, isEdDSA := inner.find("flags")
		if isEdDSA && curve.EdDSA {
			material = &packet.EdDSAMaterial{Curve: curve, Q: q}
		} else if curve.EdDSA || curve.X25519 || curve.X448 {
			material = &packet.ECDHMaterial{Curve: curve, Q: q, KDF: packet.KDFParams{HashAlgo: 8, SymAlgo: 9}}
		} else {
			material = &packet.ECDSAMaterial{Curve: curve, Q: q}
		}
	default:
		return nil, pgperr.E("agent.ParsePublicKeySExpr", pgperr.SourceAgent, pgperr.UnsupportedAlgorithm, "algo", string(algoName))
	}
	return &packet.PublicKey{Version: 4, Material: material}, nil
}
