package storage

// Keys mirror the browser localStorage slots the portal frontend used. Only
// the session store and the device registry write them; everything else
// reads through those services.
const (
	KeyUser               = "user"
	KeyAccessToken        = "accessToken"
	KeyRefreshToken       = "refreshToken"
	KeyDeviceID           = "deviceId"
	KeyRememberedUsername = "rememberedUsername"
	KeyTempPassword       = "tempPassword"
)

// Storage is durable client-side key-value storage. Implementations must be
// safe for concurrent use within one process; cross-process consistency is
// not guaranteed.
type Storage interface {
	// Get returns the value and whether the key was present.
	Get(key string) (string, bool, error)

	Set(key, value string) error

	Delete(key string) error

	// Clear removes every key.
	Clear() error

	Close() error
}
