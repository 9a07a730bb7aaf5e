package database

import "strconv"

func readFirstKey(args [][]byte) ([]string, []string) {
	// assert len(args) > 0
	key := string(args[0])
	return nil, []string{key}
}

func writeFirstKey(args [][]byte) ([]string, []string) {
	key := string(args[0])
	return []string{key}, nil
}

func writeAllKeys(args [][]byte) ([]string, []string) {
	keys := make([]string, len(args))
	for i, v := range args {
		keys[i] = string(v)
	}
	return keys, nil
}

func readAllKeys(args [][]byte) ([]string, []string) {
	keys := make([]string, len(args))
	for i, v := range args {
		keys[i] = string(v)
	}
	return nil, keys
}

// writeSecondKey prepares subcommand style commands: SUBCOMMAND key ...
func writeSecondKey(args [][]byte) ([]string, []string) {
	if len(args) < 2 {
		return nil, nil
	}
	return []string{string(args[1])}, nil
}

// writeFirstTwoKeys is used by commands moving values from a source key to a destination key
func writeFirstTwoKeys(args [][]byte) ([]string, []string) {
	return []string{string(args[0]), string(args[1])}, nil
}

// writeEvenKeys prepares MSET style commands: key value [key value ...]
func writeEvenKeys(args [][]byte) ([]string, []string) {
	keys := make([]string, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		keys = append(keys, string(args[i]))
	}
	return keys, nil
}

// prepareSetCalculateStore prepares SINTERSTORE style commands: dest key [key ...]
func prepareSetCalculateStore(args [][]byte) ([]string, []string) {
	dest := string(args[0])
	_, keys := readAllKeys(args[1:])
	return []string{dest}, keys
}

// writeNumKeys prepares LMPOP style commands: numkeys key [key ...] ...
func writeNumKeys(args [][]byte) ([]string, []string) {
	n, err := strconv.Atoi(string(args[0]))
	if err != nil || n <= 0 || n >= len(args) {
		return nil, nil
	}
	return writeAllKeys(args[1 : n+1])
}

// readNumKeysAfterTimeout prepares BLMPOP style commands: timeout numkeys key [key ...] ...
func readNumKeysAfterTimeout(args [][]byte) ([]string, []string) {
	return readNumKeys(args[1:])
}

// readNumKeys prepares SINTERCARD style commands
func readNumKeys(args [][]byte) ([]string, []string) {
	write, _ := writeNumKeys(args)
	return nil, write
}

func noPrepare(args [][]byte) ([]string, []string) {
	return nil, nil
}

// readKeysButLast prepares blocking commands whose last argument is a timeout,
// they publish the keys they actually modify by themselves
func readKeysButLast(args [][]byte) ([]string, []string) {
	return readAllKeys(args[:len(args)-1])
}
