package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// ToWatermill converts oplog metadata into a Watermill metadata map.
func ToWatermill(metadata Metadata) message.Metadata {
	if len(metadata) == 0 {
		return message.Metadata{}
	}

	wm := make(message.Metadata, len(metadata))
	for k, v := range metadata {
		wm[k] = v
	}
	return wm
}
