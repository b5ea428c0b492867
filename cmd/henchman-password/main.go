// Command henchman-password prompts for a plaintext password on the
// terminal and prints its hashed form, ready to paste into a server
// config's [[auth.users]] table.
package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/headexplodes/henchman/pkg/password"
)

func main() {
	fmt.Fprint(os.Stderr, "Password: ")
	plain, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading password:", err)
		os.Exit(1)
	}

	hashed, err := password.Hash(string(plain))
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashing password:", err)
		os.Exit(1)
	}

	fmt.Println(hashed)
}
