package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// FallbackID is used when the machine ID can't be read.
const FallbackID = "rd03d"

// MachineID retrieves an ID identifying the machine, protected with
// appID so the raw machine ID is not published.
func MachineID(appID string) string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return FallbackID
	}
	// a full HMAC is too long to type in topics.
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
