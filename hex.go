package rosslar

import "fmt"

// Hex renders bs as upper-case hex pairs separated by single spaces.
func Hex(bs []byte) string {
	return fmt.Sprintf("% X", bs)
}
