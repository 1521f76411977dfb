package tokens

import (
	"time"

	"github.com/cear54/api-t-cuida/common/claims"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const DefaultValidity = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid authorization token")
	ErrNoSecret     = errors.New("a token secret is mandatory")
)

type Options struct {
	Secret   string
	Validity time.Duration
	// Now is the clock used to stamp and check tokens, defaults to time.Now.
	Now func() time.Time
}

// Service issues and verifies HS256 session tokens. It holds no state besides its options.
type Service struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// wire form of the claims
type payload struct {
	UserId    string `mapstructure:"user_id"`
	Username  string `mapstructure:"usuario"`
	Role      string `mapstructure:"tipo_usuario"`
	DaycareId string `mapstructure:"empresa_id"`
	StaffId   string `mapstructure:"personal_id"`
	ChildId   string `mapstructure:"nino_id"`
	IssuedAt  int64  `mapstructure:"iat"`
	ExpiresAt int64  `mapstructure:"exp"`
}

func New(options Options) (*Service, error) {
	if options.Secret == "" {
		return nil, ErrNoSecret
	}
	if options.Validity <= 0 {
		options.Validity = DefaultValidity
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &Service{
		secret:   []byte(options.Secret),
		validity: options.Validity,
		now:      options.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(options.Now),
		),
	}, nil
}

// Issue signs the claims. iat and exp are always recomputed from the clock.
func (s *Service) Issue(c claims.Claims) (string, error) {
	issuedAt := s.now()

	mapClaims := jwt.MapClaims{
		"user_id":      c.UserId,
		"usuario":      c.Username,
		"empresa_id":   c.DaycareId,
		"tipo_usuario": "",
		"iat":          issuedAt.Unix(),
		"exp":          issuedAt.Add(s.validity).Unix(),
	}
	if c.Actor != nil {
		mapClaims["tipo_usuario"] = string(c.Actor.Role())
	}
	if staffId := claims.StaffId(c.Actor); staffId != "" {
		mapClaims["personal_id"] = staffId
	}
	if childId := claims.ChildId(c.Actor); childId != "" {
		mapClaims["nino_id"] = childId
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

// Verify checks the token structure, algorithm, signature and expiry and returns
// the decoded claims. Business fields are not validated here.
func (s *Service) Verify(token string) (claims.Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, err := s.parser.ParseWithClaims(token, mapClaims, s.keyFunc); err != nil {
		return claims.Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	var p payload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return claims.Claims{}, err
	}
	if err := decoder.Decode(map[string]interface{}(mapClaims)); err != nil {
		return claims.Claims{}, errors.Wrap(ErrInvalidToken, err.Error())
	}

	return claims.Claims{
		UserId:    p.UserId,
		Username:  p.Username,
		DaycareId: p.DaycareId,
		Actor:     claims.NewActor(p.Role, p.StaffId, p.ChildId),
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
	}, nil
}

func (s *Service) keyFunc(_ *jwt.Token) (interface{}, error) {
	return s.secret, nil
}
