package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kbukum/meetscribe/credentials"
)

// passphraseVar holds the vault passphrase.
const passphraseVar = "MEETSCRIBE_VAULT_PASSPHRASE"

var knownCredentials = []string{
	credentials.AssemblyAI,
	credentials.Deepgram,
	credentials.OpenAI,
	credentials.Gemini,
}

// credentialChain resolves keys from the environment first, then the vault
// when a passphrase is available.
func credentialChain(cfg *Config) (credentials.Provider, error) {
	chain := credentials.Chain{credentials.Env{}}
	pass := os.Getenv(passphraseVar)
	if pass == "" {
		return chain, nil
	}
	v, err := credentials.OpenVault(cfg.Credentials.VaultPath, pass)
	if err != nil {
		return nil, err
	}
	return append(chain, v), nil
}

// keysCmd manages the vault: keys set <name> (key on stdin), keys delete
// <name>, keys list.
func keysCmd(_ context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("keys", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.StringP("config", "c", "", "config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: meetscribe keys set|delete <name> | keys list")
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	pass := os.Getenv(passphraseVar)
	if pass == "" {
		fmt.Fprintf(stderr, "%s must be set to use the key vault\n", passphraseVar)
		return 1
	}
	vault, err := credentials.OpenVault(cfg.Credentials.VaultPath, pass)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	action, rest := fs.Arg(0), fs.Args()[1:]
	if action == "list" {
		env := credentials.Env{}
		for _, name := range knownCredentials {
			source := "-"
			switch {
			case credentials.Get(env, name) != "":
				source = "env " + env.Variable(name)
			case slices.Contains(vault.Names(), name):
				source = "vault"
			}
			fmt.Fprintf(stdout, "%-12s %s\n", name, source)
		}
		return 0
	}

	if len(rest) != 1 || !slices.Contains(knownCredentials, rest[0]) {
		fmt.Fprintf(stderr, "%s needs one of: %s\n", action, strings.Join(knownCredentials, ", "))
		return 2
	}
	name := rest[0]
	switch action {
	case "set":
		key, err := bufio.NewReader(stdin).ReadString('\n')
		key = strings.TrimSpace(key)
		if key == "" {
			if err != nil && err != io.EOF {
				fmt.Fprintln(stderr, err)
			}
			fmt.Fprintln(stderr, "no key read from stdin")
			return 1
		}
		if err := vault.Set(name, key); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	case "delete":
		if !vault.Delete(name) {
			fmt.Fprintf(stderr, "no %s key in the vault\n", name)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "unknown keys action %q\n", action)
		return 2
	}
	if err := vault.Save(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: %s\n", name, action)
	return 0
}
