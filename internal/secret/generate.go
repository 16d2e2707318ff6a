package secret

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	lower   = "abcdefghijkmnopqrstuvwxyz"
	upper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digits  = "23456789"
	symbols = "!@#%^*-_=+"
)

// Password returns a random password of length n (minimum 12) that holds at
// least one character from each class.  WHM and WP Toolkit both reject
// passwords that miss a class.
func Password(n int) (string, error) {
	if n < 12 {
		n = 12
	}
	classes := []string{lower, upper, digits, symbols}
	all := strings.Join(classes, "")

	out := make([]byte, n)
	for i, cls := range classes {
		c, err := pick(cls)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	for i := len(classes); i < n; i++ {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	// Fisher-Yates so the class-guaranteed chars are not always first.
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

// Token returns n random lowercase alphanumerics, used for FTP login
// suffixes and admin usernames.
func Token(n int) (string, error) {
	const alphabet = lower + digits
	out := make([]byte, n)
	for i := range out {
		c, err := pick(alphabet)
		if err != nil {
			return "", err
		}
		out[i] = c
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[i.Int64()], nil
}
