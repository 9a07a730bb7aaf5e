package redis

// Reply is a value of the redis serialization protocol: a command result or a pushed pub/sub message
type Reply interface {
	ToBytes() []byte
}
