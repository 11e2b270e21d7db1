package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTokenLifetime is used when no lifetime is configured.
const DefaultTokenLifetime = 24 * time.Hour

// Wire keys of the signed token payload.
const (
	keySubject   = "usuario_id"
	keyIssuedAt  = "timestamp"
	keyExpiresAt = "expiracao"
	keyEphemeral = "temporario"
)

// Scheme selects the keyed digest used to sign tokens.
type Scheme string

const (
	// SchemeHMAC signs with HMAC-SHA256 and encodes tokens with URL-safe base64.
	SchemeHMAC Scheme = "hmac"
	// SchemeLegacy signs with SHA256(payload || secret) and standard base64,
	// matching tokens minted by the previous backend.
	SchemeLegacy Scheme = "legacy"
)

// Clock abstracts wall-clock reads so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the host clock.
var SystemClock Clock = ClockFunc(time.Now)

// TokenCodecConfig configures a TokenCodec.
type TokenCodecConfig struct {
	Secret          []byte
	DefaultLifetime time.Duration
	Scheme          Scheme
	Clock           Clock
}

// TokenCodec mints and verifies self-describing signed tokens. It keeps no
// server-side state: anyone holding the secret can mint tokens for any subject.
// A TokenCodec is safe for concurrent use.
type TokenCodec struct {
	secret          []byte
	defaultLifetime time.Duration
	scheme          Scheme
	clock           Clock
	encoding        *base64.Encoding
}

// TokenInfo is the decoded, unverified content of a token.
type TokenInfo struct {
	SubjectID        int64  `json:"usuario_id"`
	IssuedAt         int64  `json:"timestamp"`
	ExpiresAt        int64  `json:"expiracao"`
	Ephemeral        bool   `json:"temporario"`
	IssuedAtText     string `json:"timestamp_legivel"`
	ExpiresAtText    string `json:"expiracao_legivel"`
	SecondsRemaining int64  `json:"tempo_restante_segundos"`
}

type tokenData struct {
	SubjectID int64 `json:"usuario_id"`
	IssuedAt  int64 `json:"timestamp"`
	ExpiresAt int64 `json:"expiracao"`
	Ephemeral bool  `json:"temporario,omitempty"`
}

type wireToken struct {
	Data tokenData `json:"data"`
	Hash string    `json:"hash"`
}

// NewTokenCodec builds a codec. The secret must not be empty.
func NewTokenCodec(cfg TokenCodecConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.DefaultLifetime < time.Second {
		cfg.DefaultLifetime = DefaultTokenLifetime
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	tc := &TokenCodec{
		secret:          append([]byte(nil), cfg.Secret...),
		defaultLifetime: cfg.DefaultLifetime,
		clock:           cfg.Clock,
	}
	switch cfg.Scheme {
	case SchemeHMAC, "":
		tc.scheme = SchemeHMAC
		tc.encoding = base64.URLEncoding.Strict()
	case SchemeLegacy:
		tc.scheme = SchemeLegacy
		tc.encoding = base64.StdEncoding.Strict()
	default:
		return nil, fmt.Errorf("unknown token scheme %q", cfg.Scheme)
	}
	return tc, nil
}

// DefaultLifetime returns the lifetime used by IssueDefault and Renew.
func (tc *TokenCodec) DefaultLifetime() time.Duration {
	return tc.defaultLifetime
}

// IssueDefault mints a token with the default lifetime.
func (tc *TokenCodec) IssueDefault(subjectID int64) (string, error) {
	return tc.Issue(subjectID, tc.defaultLifetime)
}

// Issue mints a token for subjectID valid for lifetime (whole seconds).
// Tokens with a lifetime other than the default are flagged as ephemeral.
func (tc *TokenCodec) Issue(subjectID int64, lifetime time.Duration) (string, error) {
	if subjectID <= 0 {
		return "", ErrInvalidSubject
	}
	seconds := int64(lifetime / time.Second)
	if seconds < 1 {
		return "", ErrInvalidLifetime
	}

	issuedAt := tc.clock.Now().Unix()
	data := tokenData{
		SubjectID: subjectID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt + seconds,
		Ephemeral: lifetime != tc.defaultLifetime,
	}

	raw, err := json.Marshal(wireToken{Data: data, Hash: tc.sign(data.canonical())})
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return tc.encoding.EncodeToString(raw), nil
}

// Verify checks the token signature and expiry and returns its subject.
// It performs no I/O and depends only on the token, the secret and the clock.
func (tc *TokenCodec) Verify(token string) (int64, error) {
	data, hash, err := tc.decode(token)
	if err != nil {
		return 0, err
	}

	expected := tc.sign(data.canonical())
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return 0, ErrSignatureMismatch
	}
	if tc.clock.Now().Unix() > data.ExpiresAt {
		return 0, ErrTokenExpired
	}
	return data.SubjectID, nil
}

// Introspect decodes a token WITHOUT checking its signature or expiry.
// The result is for diagnostics only and must never be used to authorize.
func (tc *TokenCodec) Introspect(token string) (*TokenInfo, error) {
	data, _, err := tc.decode(token)
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		SubjectID:        data.SubjectID,
		IssuedAt:         data.IssuedAt,
		ExpiresAt:        data.ExpiresAt,
		Ephemeral:        data.Ephemeral,
		IssuedAtText:     time.Unix(data.IssuedAt, 0).UTC().Format(time.ANSIC),
		ExpiresAtText:    time.Unix(data.ExpiresAt, 0).UTC().Format(time.ANSIC),
		SecondsRemaining: data.ExpiresAt - tc.clock.Now().Unix(),
	}, nil
}

// Renew verifies token and mints a brand-new default-lifetime token for the
// same subject. The old token stays valid until its own expiry.
func (tc *TokenCodec) Renew(token string) (string, error) {
	subjectID, err := tc.Verify(token)
	if err != nil {
		return "", err
	}
	return tc.IssueDefault(subjectID)
}

func (tc *TokenCodec) sign(payload []byte) string {
	if tc.scheme == SchemeLegacy {
		h := sha256.New()
		h.Write(payload)
		h.Write(tc.secret)
		return hex.EncodeToString(h.Sum(nil))
	}
	mac := hmac.New(sha256.New, tc.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (tc *TokenCodec) decode(token string) (tokenData, string, error) {
	raw, err := tc.encoding.DecodeString(token)
	if err != nil {
		return tokenData{}, "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return tokenData{}, "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	dataRaw, okData := outer["data"]
	hashRaw, okHash := outer["hash"]
	if len(outer) != 2 || !okData || !okHash {
		return tokenData{}, "", fmt.Errorf("%w: unexpected envelope", ErrMalformedToken)
	}

	var hash string
	if err := json.Unmarshal(hashRaw, &hash); err != nil || hash == "" {
		return tokenData{}, "", fmt.Errorf("%w: bad hash", ErrMalformedToken)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(dataRaw, &fields); err != nil {
		return tokenData{}, "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	for key := range fields {
		switch key {
		case keySubject, keyIssuedAt, keyExpiresAt, keyEphemeral:
		default:
			return tokenData{}, "", fmt.Errorf("%w: unknown field %q", ErrMalformedToken, key)
		}
	}

	var data tokenData
	if data.SubjectID, err = positiveField(fields, keySubject); err != nil {
		return tokenData{}, "", err
	}
	if data.IssuedAt, err = positiveField(fields, keyIssuedAt); err != nil {
		return tokenData{}, "", err
	}
	if data.ExpiresAt, err = positiveField(fields, keyExpiresAt); err != nil {
		return tokenData{}, "", err
	}
	if rawFlag, ok := fields[keyEphemeral]; ok {
		if err := json.Unmarshal(rawFlag, &data.Ephemeral); err != nil {
			return tokenData{}, "", fmt.Errorf("%w: bad %s", ErrMalformedToken, keyEphemeral)
		}
	}
	return data, hash, nil
}

func positiveField(fields map[string]json.RawMessage, key string) (int64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedToken, key)
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: bad %s", ErrMalformedToken, key)
	}
	return v, nil
}

// canonical renders the signed bytes: keys sorted, ", " and ": " separators.
func (d tokenData) canonical() []byte {
	var b strings.Builder
	b.WriteString(`{"` + keyExpiresAt + `": `)
	b.WriteString(strconv.FormatInt(d.ExpiresAt, 10))
	if d.Ephemeral {
		b.WriteString(`, "` + keyEphemeral + `": true`)
	}
	b.WriteString(`, "` + keyIssuedAt + `": `)
	b.WriteString(strconv.FormatInt(d.IssuedAt, 10))
	b.WriteString(`, "` + keySubject + `": `)
	b.WriteString(strconv.FormatInt(d.SubjectID, 10))
	b.WriteString("}")
	return []byte(b.String())
}
