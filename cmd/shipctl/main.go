// Command shipctl ships posts and follows the feed from a terminal.
//
//	shipctl login -email ada@shiplog.dev
//	shipctl post -image shot.png "wired the mill #engine"
//	shipctl feed
//	shipctl tail
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"shiplog/internal/client"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: shipctl [-api URL] [-token TOKEN] <command> [args]

commands:
  login -email EMAIL     sign in (development servers only) and print a token
  post [-image FILE] TEXT
                         ship a post; the first #tag is linked to a matching project
  feed                   print the feed
  projects               list projects you can see
  tail                   follow new posts live
`)
}

func main() {
	api := flag.String("api", envOr("SHIPLOG_API", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("SHIPLOG_TOKEN"), "Bearer token (or SHIPLOG_TOKEN)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	c, err := client.New(*api, client.WithToken(*token))
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "login":
		err = runLogin(ctx, c, args)
	case "post":
		err = runPost(ctx, c, args)
	case "feed":
		err = runFeed(ctx, c)
	case "projects":
		err = runProjects(ctx, c)
	case "tail":
		err = runTail(ctx, c)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func runLogin(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email to sign in as")
	_ = fs.Parse(args)
	if *email == "" {
		return errors.New("login: -email is required")
	}

	info, err := c.DevLogin(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "signed in as %s (%s), token expires %s\n",
		info.User.FullName, info.User.ID, info.Session.ExpiresAt.Format("2006-01-02 15:04"))
	fmt.Printf("export SHIPLOG_TOKEN=%s\n", info.Token)
	return nil
}

func runPost(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	imagePath := fs.String("image", "", "Image to attach")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("post: exactly one TEXT argument is required")
	}

	var image *attachment
	if *imagePath != "" {
		content, err := os.ReadFile(*imagePath)
		if err != nil {
			return err
		}
		image = &attachment{name: filepath.Base(*imagePath), content: content}
	}

	post, err := ship(ctx, c, fs.Arg(0), image, os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("shipped %s\n", post.ID)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "shipctl: %v\n", err)
	os.Exit(1)
}
