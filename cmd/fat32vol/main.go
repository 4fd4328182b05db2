// Command fat32vol mounts a FAT32 disk image and runs an interactive shell
// over it. Line reading, tokenizing, and dispatch live here because spec.md
// keeps them out of the engine's scope; everything past tokenizing is a
// direct call into the facade package.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mharlan/fat32vol/facade"
	"github.com/mharlan/fat32vol/volume"
)

func main() {
	app := &cli.App{
		Name:      "fat32vol",
		Usage:     "mount a FAT32 image and edit it interactively",
		ArgsUsage: "IMAGE_FILE",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %s\n", err.Error())
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit(fmt.Sprintf("usage: %s IMAGE_FILE", c.App.Name), 1)
	}

	imagePath := c.Args().First()
	vol, err := volume.Mount(imagePath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: failed to open FAT32 image: %s", err.Error()), 1)
	}
	defer vol.Unmount()

	repl(imagePath, vol, os.Stdin, os.Stdout)
	return nil
}

func repl(imagePath string, vol *volume.Volume, in *os.File, out *os.File) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(out, "%s%s> ", imagePath, vol.Path())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		tokens, quoted := tokenize(scanner.Text())
		if len(tokens) == 0 {
			continue
		}

		cmd := tokens[0]
		if cmd == "exit" {
			return
		}

		if err := dispatch(vol, cmd, tokens[1:], quoted, out); err != nil {
			fmt.Fprintf(out, "Error: %s\n", err.Error())
		}
	}
}

// tokenize splits a command line on whitespace, except that a double-quoted
// run of text (needed by `write NAME "STRING"`) is returned as a single
// token. The returned quoted string, if any, is also returned separately
// since it may legitimately contain spaces.
func tokenize(line string) ([]string, string) {
	var tokens []string
	var quoted string

	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}

		if line[i] == '"' {
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				tokens = append(tokens, line[i+1:])
				quoted = line[i+1:]
				break
			}
			quoted = line[i+1 : i+1+end]
			tokens = append(tokens, quoted)
			i = i + 1 + end + 1
			continue
		}

		start := i
		for i < len(line) && line[i] != ' ' {
			i++
		}
		tokens = append(tokens, line[start:i])
	}

	return tokens, quoted
}

func dispatch(vol *volume.Volume, cmd string, args []string, quoted string, out *os.File) error {
	switch cmd {
	case "info":
		return facade.Info(vol, out)
	case "ls":
		return facade.Ls(vol, out)
	case "cd":
		return requireArgs(args, 1, func() error { return facade.Cd(vol, args[0]) })
	case "creat":
		return requireArgs(args, 1, func() error { return facade.Creat(vol, args[0]) })
	case "mkdir":
		return requireArgs(args, 1, func() error { return facade.Mkdir(vol, args[0]) })
	case "open":
		return requireArgs(args, 2, func() error { return facade.Open(vol, args[0], args[1]) })
	case "close":
		return requireArgs(args, 1, func() error { return facade.Close(vol, args[0]) })
	case "lsof":
		return facade.Lsof(vol, out)
	case "lseek":
		return requireArgs(args, 2, func() error {
			off, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("bad offset %q", args[1])
			}
			return facade.Lseek(vol, args[0], uint32(off))
		})
	case "write":
		return requireArgs(args, 1, func() error { return facade.Write(vol, args[0], quoted) })
	case "read":
		return requireArgs(args, 2, func() error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad length %q", args[1])
			}
			data, ferr := facade.Read(vol, args[0], n)
			if ferr != nil {
				return ferr
			}
			fmt.Fprintln(out, string(data))
			return nil
		})
	case "mv":
		return requireArgs(args, 2, func() error { return facade.Mv(vol, args[0], args[1]) })
	case "rm":
		return requireArgs(args, 1, func() error { return facade.Rm(vol, args[0]) })
	case "rmdir":
		return requireArgs(args, 1, func() error { return facade.Rmdir(vol, args[0]) })
	default:
		return fmt.Errorf("not a valid command")
	}
}

func requireArgs(args []string, n int, fn func() error) error {
	if len(args) < n {
		return fmt.Errorf("missing argument(s)")
	}
	return fn()
}
