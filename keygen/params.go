// Package keygen is the key-generation orchestrator that turns a set of
// parameters - from quick mode, a parameter file, or an interactive
// sequence - into a fully self-signed Keyblock, driving identity
// derivation, packet construction, signature building, and the agent
// (or local) key source in order. Parameter-file parsing is
// hand-rolled, line-oriented bufio.Scanner code, since nothing in the
// retrieval pack ships a parser for GnuPG's specific grammar (see
// DESIGN.md).
package keygen

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"

	"nullprogram.com/x/opengpg-core/openpgp/packet"
	"nullprogram.com/x/opengpg-core/pgperr"
)

// Parameters is one key (or primary+subkey pair) to generate, as
// collected from a parameter-file block, quick mode, or prompts.
type Parameters struct {
	KeyType   string
	KeyLength int
	KeyCurve  string
	KeyUsage  []string

	SubkeyType   string
	SubkeyLength int
	SubkeyCurve  string
	SubkeyUsage  []string

	NameReal    string
	NameEmail   string
	NameComment string

	ExpireDate   string // raw token, resolved by ResolveExpiry
	CreationDate string // raw token, resolved by ResolveCreation

	Passphrase  string
	Preferences string
	Revoker     string
	Handle      string
	Keyserver   string

	// Directives collected from the surrounding %-lines;
	// these apply to the whole file, not a single block, but are
	// copied onto every Parameters value for convenience.
	Echo         bool
	DryRun       bool
	NoProtection bool
	TransientKey bool
	Pubring      string

	// AllowLargeRSA/Expert supplement the quick key-size table with the
	// "large-rsa"/"expert" toggles GnuPG's own keygen prompts expose.
	AllowLargeRSA bool
	Expert        bool
}

// ParseParamFile parses the line-oriented parameter-file grammar: blank
// lines and '#' comments are ignored, '%' lines are directives, a
// block runs from Key-Type to the next Key-Type, %commit, or EOF.
func ParseParamFile(r io.Reader) ([]Parameters, error) {
	var blocks []Parameters
	var cur *Parameters
	var directives Parameters

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "%") {
			applyDirective(&directives, line[1:])
			if strings.EqualFold(strings.Fields(line[1:])[0], "commit") && cur != nil {
				blocks = append(blocks, finishBlock(cur, directives))
				cur = nil
			}
			continue
		}
		key, value, ok := splitKeyword(line)
		if !ok {
			return nil, pgperr.E("keygen.ParseParamFile", pgperr.SourceCore, pgperr.Internal, "reason", "malformed parameter line", "line", line)
		}
		if strings.EqualFold(key, "Key-Type") {
			if cur != nil {
				blocks = append(blocks, finishBlock(cur, directives))
			}
			cur = &Parameters{}
		}
		if cur == nil {
			return nil, pgperr.E("keygen.ParseParamFile", pgperr.SourceCore, pgperr.Internal, "reason", "parameter line before Key-Type", "line", line)
		}
		if err := applyKeyword(cur, key, value); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pgperr.E("keygen.ParseParamFile", pgperr.SourceCore, pgperr.IO, "cause", err)
	}
	if cur != nil {
		blocks = append(blocks, finishBlock(cur, directives))
	}
	return blocks, nil
}

func finishBlock(p *Parameters, directives Parameters) Parameters {
	out := *p
	out.Echo, out.DryRun, out.NoProtection, out.TransientKey, out.Pubring =
		directives.Echo, directives.DryRun, directives.NoProtection, directives.TransientKey, directives.Pubring
	return out
}

func applyDirective(d *Parameters, rest string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}
	switch strings.ToLower(fields[0]) {
	case "echo":
		d.Echo = true
	case "dry-run":
		d.DryRun = true
	case "no-protection":
		d.NoProtection = true
	case "transient-key":
		d.TransientKey = true
	case "pubring":
		if len(fields) > 1 {
			d.Pubring = fields[1]
		}
	}
}

func splitKeyword(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func applyKeyword(p *Parameters, key, value string) error {
	switch strings.ToLower(key) {
	case "key-type":
		p.KeyType = value
	case "key-length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badInt("Key-Length", value)
		}
		p.KeyLength = n
	case "key-curve":
		p.KeyCurve = value
	case "key-usage":
		p.KeyUsage = splitUsage(value)
	case "subkey-type":
		p.SubkeyType = value
	case "subkey-length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badInt("Subkey-Length", value)
		}
		p.SubkeyLength = n
	case "subkey-curve":
		p.SubkeyCurve = value
	case "subkey-usage":
		p.SubkeyUsage = splitUsage(value)
	case "name-real":
		p.NameReal = value
	case "name-email":
		p.NameEmail = value
	case "name-comment":
		p.NameComment = value
	case "expire-date":
		p.ExpireDate = value
	case "creation-date":
		p.CreationDate = value
	case "passphrase":
		p.Passphrase = value
	case "preferences":
		p.Preferences = value
	case "revoker":
		p.Revoker = value
	case "handle":
		p.Handle = value
	case "keyserver":
		p.Keyserver = value
	default:
		return pgperr.E("keygen.applyKeyword", pgperr.SourceCore, pgperr.Internal, "reason", "unrecognised parameter keyword", "keyword", key)
	}
	return nil
}

func badInt(field, value string) error {
	return pgperr.E("keygen.applyKeyword", pgperr.SourceCore, pgperr.Internal, "reason", "not an integer", "field", field, "value", value)
}

func splitUsage(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	for i, f := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(f))
	}
	return fields
}

// ResolveExpiry parses the expiration grammar relative to created: "0"
// (never), "N[dwmy]" (days/weeks/months=30d/years=365d), an ISO-8601
// date/datetime, or "seconds=N". It returns the number of seconds
// after created the key/binding expires, or 0 for never.
func ResolveExpiry(token string, created time.Time) (uint32, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == "0" {
		return 0, nil
	}
	if strings.HasPrefix(token, "seconds=") {
		n, err := strconv.ParseUint(token[len("seconds="):], 10, 32)
		if err != nil {
			return 0, badExpiry(token)
		}
		return uint32(n), nil
	}
	if unit := token[len(token)-1]; unit == 'd' || unit == 'w' || unit == 'm' || unit == 'y' {
		n, err := strconv.ParseUint(token[:len(token)-1], 10, 32)
		if err != nil {
			return 0, badExpiry(token)
		}
		var days uint64
		switch unit {
		case 'd':
			days = n
		case 'w':
			days = n * 7
		case 'm':
			days = n * 30
		case 'y':
			days = n * 365
		}
		return uint32(days * 86400), nil
	}
	if t, err := iso8601.ParseString(token); err == nil {
		delta := t.Sub(created)
		if delta < 0 {
			return 0, badExpiry(token)
		}
		return uint32(delta.Seconds()), nil
	}
	return 0, badExpiry(token)
}

func badExpiry(token string) error {
	return pgperr.E("keygen.ResolveExpiry", pgperr.SourceCore, pgperr.TimeConflict, "reason", "unparseable expiration", "token", token)
}

// ResolveCreation parses a Creation-Date token: empty defaults to
// current wall clock; otherwise an ISO-8601 date/datetime or
// "seconds=N" unix timestamp, for reproducible key generation.
func ResolveCreation(token string, now func() time.Time) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return now(), nil
	}
	if strings.HasPrefix(token, "seconds=") {
		n, err := strconv.ParseInt(token[len("seconds="):], 10, 64)
		if err != nil {
			return time.Time{}, badExpiry(token)
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := iso8601.ParseString(token)
	if err != nil {
		return time.Time{}, badExpiry(token)
	}
	return t, nil
}

// AlgoFromKeyType maps a Key-Type value (numeric id or name) to an
// Algorithm.
func AlgoFromKeyType(keyType string) (packet.Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(keyType)) {
	case "RSA":
		return packet.AlgoRSAEncryptSign, nil
	case "DSA":
		return packet.AlgoDSA, nil
	case "ELG", "ELG-E":
		return packet.AlgoElgamalEncrypt, nil
	case "ECDSA":
		return packet.AlgoECDSA, nil
	case "EDDSA":
		return packet.AlgoEdDSA, nil
	case "ECDH":
		return packet.AlgoECDH, nil
	case "DEFAULT":
		return packet.AlgoRSAEncryptSign, nil
	}
	if n, err := strconv.Atoi(keyType); err == nil {
		return packet.ParseAlgorithm(byte(n))
	}
	return 0, pgperr.E("keygen.AlgoFromKeyType", pgperr.SourceCore, pgperr.UnsupportedAlgorithm, "key_type", keyType)
}

// RSAKeySize rounds and bounds an RSA key size: clamp to [1024, 4096]
// (8192 with allowLargeRSA), then round up to the next multiple of 32.
func RSAKeySize(requested int, allowLargeRSA bool) int {
	max := 4096
	if allowLargeRSA {
		max = 8192
	}
	return clampAndRound(requested, 1024, max, 32, 2048)
}

// ElgamalKeySize rounds and bounds an Elgamal key size identically to
// RSA.
func ElgamalKeySize(requested int) int {
	return clampAndRound(requested, 1024, 4096, 32, 2048)
}

// DSAKeySize rounds and bounds a DSA key size: round up to the next
// multiple of 64, and additionally to the next multiple of 1024 above
// 1024 unless expert mode is set.
func DSAKeySize(requested int, expert bool) int {
	size := clampAndRound(requested, 768, 3072, 64, 2048)
	if !expert && size > 1024 {
		size = roundUp(size, 1024)
		if size > 3072 {
			size = 3072
		}
	}
	return size
}

// DSAQSize derives the q-size from the p-size:
// <=1024 -> 160, <=2047 -> 224, else 256.
func DSAQSize(pSize int) int {
	switch {
	case pSize <= 1024:
		return 160
	case pSize <= 2047:
		return 224
	default:
		return 256
	}
}

func clampAndRound(requested, min, max, multiple, defaultVal int) int {
	if requested <= 0 {
		requested = defaultVal
	}
	if requested < min {
		requested = min
	}
	if requested > max {
		requested = max
	}
	return roundUp(requested, multiple)
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}

// ECCBitSize maps a curve/algorithm pair to its fixed key size: ECDSA/ECDH
// and EdDSA curves each have a single valid size, taken directly from
// the curve.
func ECCBitSize(curve packet.Curve) int {
	switch curve.Name {
	case "Ed25519", "Curve25519":
		return 255
	case "Ed448", "X448":
		return 441
	default:
		return curve.FieldBytes * 8
	}
}
