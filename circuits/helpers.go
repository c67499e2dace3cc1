package circuits

import (
	"io"
	"math/big"
	"os"

	"github.com/vocdoni/franchise-proof/log"
)

// BigIntArrayToN pads the big.Int array to n elements, if needed,
// with zeros.
func BigIntArrayToN(arr []*big.Int, n int) []*big.Int {
	bigArr := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		if i < len(arr) && arr[i] != nil {
			bigArr[i] = arr[i]
		} else {
			bigArr[i] = big.NewInt(0)
		}
	}
	return bigArr
}

// BigIntArrayToStringArray converts the big.Int array to a string array.
func BigIntArrayToStringArray(arr []*big.Int, n int) []string {
	strArr := []string{}
	for _, b := range BigIntArrayToN(arr, n) {
		strArr = append(strArr, b.String())
	}
	return strArr
}

// storeTo writes the binary serialization of obj to a new file.
func storeTo(obj io.WriterTo, path, what string) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	if _, err := obj.WriteTo(fd); err != nil {
		return err
	}
	log.Infow(what+" written", "path", path)
	return nil
}

// StoreProvingKey stores a proving key in a file.
func StoreProvingKey(pk io.WriterTo, path string) error {
	return storeTo(pk, path, "proving key")
}

// StoreVerificationKey stores a verification key in a file.
func StoreVerificationKey(vk io.WriterTo, path string) error {
	return storeTo(vk, path, "verification key")
}
