// Command tokengen issues a single HS256 JWT and prints it on stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Wang-tianhao/Vibrant-tokengen-go/jwtgen"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		audience   string
		issuer     string
		secret     string
		secretFile string
		hours      int
		subject    string
		claims     string
		envFile    string
		withJTI    bool
		verbose    bool
	)
	fs.StringVar(&audience, "audience", "", "Audience (aud claim)")
	fs.StringVar(&audience, "a", "", "Shorthand for -audience")
	fs.StringVar(&issuer, "issuer", "", "Issuer (iss claim)")
	fs.StringVar(&issuer, "i", "", "Shorthand for -issuer")
	fs.StringVar(&secret, "secret", "", "HMAC secret")
	fs.StringVar(&secret, "s", "", "Shorthand for -secret")
	fs.StringVar(&secretFile, "secret-file", "", "Read the HMAC secret from a file")
	fs.IntVar(&hours, "expiration-hours", jwtgen.DefaultExpirationHours, "Token lifetime in hours (1-255)")
	fs.IntVar(&hours, "e", jwtgen.DefaultExpirationHours, "Shorthand for -expiration-hours")
	fs.StringVar(&subject, "subject", "", "Subject (sub claim)")
	fs.StringVar(&claims, "claims", "", "Additional claims as key=value,key=value")
	fs.StringVar(&envFile, "env-file", "", "Load TOKENGEN_* defaults from a dotenv file")
	fs.BoolVar(&withJTI, "jti", false, "Add a random jti claim")
	fs.BoolVar(&verbose, "v", false, "Log issuance events to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	defaults, err := loadEnvDefaults(envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	given := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })
	unset := func(names ...string) bool {
		for _, n := range names {
			if given[n] {
				return false
			}
		}
		return true
	}
	if unset("audience", "a") {
		audience = defaults.Audience
	}
	if unset("issuer", "i") {
		issuer = defaults.Issuer
	}
	// -secret and -secret-file are one source; either on the command line
	// replaces both environment values
	if unset("secret", "s", "secret-file") {
		secret = defaults.Secret
		secretFile = defaults.SecretFile
	}
	if unset("expiration-hours", "e") {
		hours = defaults.ExpirationHours
	}
	if unset("subject") {
		subject = defaults.Subject
	}
	if unset("claims") {
		claims = defaults.Claims
	}

	if secretFile != "" {
		if secret != "" {
			fmt.Fprintln(stderr, "Error: -secret and -secret-file are mutually exclusive")
			return 1
		}
		key, err := jwtgen.ReadSecretFile(secretFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		secret = string(key)
	}

	bundle := jwtgen.ParameterBundle{
		Issuer:           issuer,
		Audience:         audience,
		Subject:          subject,
		Secret:           []byte(secret),
		ExpirationHours:  hours,
		AdditionalClaims: claims,
	}
	if err := bundle.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var opts []jwtgen.ConfigOption
	if verbose {
		opts = append(opts, jwtgen.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	if withJTI {
		opts = append(opts, jwtgen.WithRandomJWTID())
	}

	iss, err := jwtgen.NewIssuer(opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	token, err := iss.Issue(bundle)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, token)
	return 0
}
