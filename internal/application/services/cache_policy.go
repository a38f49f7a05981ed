package services

import "time"

// IsCacheValid reports whether a stored portfolio snapshot can be served
// without a refresh. All timestamps are Unix seconds; 0 means never.
//
// The snapshot must be younger than ttl and taken after the last recorded
// activity. Activity at the same second as the check invalidates it.
func IsCacheValid(now, lastAssetCheck, lastActivityAt int64, ttl time.Duration) bool {
	age := time.Duration(now-lastAssetCheck) * time.Second
	return age < ttl && lastActivityAt < lastAssetCheck
}
