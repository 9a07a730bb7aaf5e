package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ToCmdLine convert strings to [][]byte
func ToCmdLine(cmd ...string) [][]byte {
	args := make([][]byte, len(cmd))
	for i, s := range cmd {
		args[i] = []byte(s)
	}
	return args
}

// ToCmdLine2 convert commandName and string-type argument to [][]byte
func ToCmdLine2(commandName string, args ...string) [][]byte {
	result := make([][]byte, len(args)+1)
	result[0] = []byte(commandName)
	for i, s := range args {
		result[i+1] = []byte(s)
	}
	return result
}

// ToCmdLine3 convert commandName and []byte-type argument to CmdLine
func ToCmdLine3(commandName string, args ...[]byte) [][]byte {
	result := make([][]byte, len(args)+1)
	result[0] = []byte(commandName)
	copy(result[1:], args)
	return result
}

// ToArgs converts arbitrary client arguments into a command line.
// Strings and byte slices are kept as is, numbers are formatted the way redis clients do.
func ToArgs(args ...interface{}) [][]byte {
	result := make([][]byte, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case []byte:
			result[i] = v
		case string:
			result[i] = []byte(v)
		case int:
			result[i] = []byte(strconv.Itoa(v))
		case int64:
			result[i] = []byte(strconv.FormatInt(v, 10))
		case uint64:
			result[i] = []byte(strconv.FormatUint(v, 10))
		case float64:
			result[i] = []byte(strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			if v {
				result[i] = []byte("1")
			} else {
				result[i] = []byte("0")
			}
		case nil:
			result[i] = []byte{}
		default:
			result[i] = []byte(fmt.Sprint(v))
		}
	}
	return result
}

// Equals check whether the given value is equal
func Equals(a interface{}, b interface{}) bool {
	sliceA, okA := a.([]byte)
	sliceB, okB := b.([]byte)
	if okA && okB {
		return BytesEquals(sliceA, sliceB)
	}
	return a == b
}

// BytesEquals check whether the given bytes is equal
func BytesEquals(a []byte, b []byte) bool {
	if (a == nil && b != nil) || (a != nil && b == nil) {
		return false
	}
	return string(a) == string(b)
}

// ToLowerName returns the lower-cased command name of a command line
func ToLowerName(cmdLine [][]byte) string {
	if len(cmdLine) == 0 {
		return ""
	}
	return strings.ToLower(string(cmdLine[0]))
}

// CopyBytes returns a copy of b, callers may keep the result after b is reused
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
