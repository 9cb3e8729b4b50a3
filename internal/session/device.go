package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DeviceCookie is the cookie carrying the signed device token.
const DeviceCookie = "lb_device"

// DefaultDeviceLifetime is how long a device token stays valid.
const DefaultDeviceLifetime = 365 * 24 * time.Hour

const deviceIssuer = "lifebalance"

var ErrInvalidDevice = errors.New("invalid or expired device token")

// DeviceClaims identify the browser a storage namespace belongs to.
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// DeviceIssuer signs and verifies device tokens.
type DeviceIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewDeviceIssuer(secret string, lifetime time.Duration) *DeviceIssuer {
	if lifetime <= 0 {
		lifetime = DefaultDeviceLifetime
	}
	return &DeviceIssuer{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// Lifetime is the validity of issued tokens, used as the cookie max age.
func (d *DeviceIssuer) Lifetime() time.Duration { return d.lifetime }

// Issue mints a new device ID and its signed token.
func (d *DeviceIssuer) Issue() (deviceID, token string, err error) {
	deviceID = uuid.NewString()
	now := d.now()
	claims := &DeviceClaims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    deviceIssuer,
			Subject:   deviceID,
			ExpiresAt: jwt.NewNumericDate(now.Add(d.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign device token: %w", err)
	}
	return deviceID, token, nil
}

// Verify returns the device ID carried by token.
func (d *DeviceIssuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &DeviceClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return d.secret, nil
		},
		jwt.WithIssuer(deviceIssuer),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	claims, ok := parsed.Claims.(*DeviceClaims)
	if !ok || !parsed.Valid || claims.DeviceID == "" {
		return "", ErrInvalidDevice
	}
	if _, err := uuid.Parse(claims.DeviceID); err != nil {
		return "", fmt.Errorf("%w: malformed device id", ErrInvalidDevice)
	}
	return claims.DeviceID, nil
}
