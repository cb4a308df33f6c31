package bus

import (
	"crypto/sha256"
	"encoding/binary"
)

// ChoosePartition maps key to a partition in [0, partitions). The mapping is
// a pure function of key and partitions, stable across processes.
func ChoosePartition(key string, partitions int) int {
	sum := sha256.Sum256([]byte(key))
	return int(binary.BigEndian.Uint16(sum[:2])) % partitions
}

// EmptyKeyPartition is the partition every empty key maps to.
func EmptyKeyPartition(partitions int) int {
	return ChoosePartition("", partitions)
}
