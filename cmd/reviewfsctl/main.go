// Command reviewfsctl is a small developer tool for driving the
// filesystem core directly from a shell, without a TCP front end.
// Grounded on mit-pdos-go-nfsd/cmd/fs-smallfile and cmd/largefile's
// one-shot, flag-driven main functions, and supplementing the
// feature set recovered from original_source/src/tools/fs_demo.cpp
// and original_source/src/tests/test_vfs.cpp, which drive the same
// format/mkdir/write/read/stat operations from a standalone binary.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mit-pdos/reviewfs/vfs"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: reviewfsctl -image=path [-cache=N] <command> [args...]

commands:
  format <size_mb>
  mkdir <path>
  create <path>
  write <path> <text>
  read <path>
  ls <path>
  stat
  cache-stats
  journal-stats
  snapshot-create <name>
  snapshot-restore <name>
  snapshot-list
`)
}

func main() {
	image := flag.String("image", "", "path to the filesystem image")
	cacheCapacity := flag.Int("cache", 256, "block cache capacity")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if *image == "" || len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(*image, *cacheCapacity, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "reviewfsctl:", err)
		os.Exit(1)
	}
}

func run(image string, cacheCapacity int, cmd string, args []string) error {
	if cmd == "format" {
		if len(args) != 1 {
			return fmt.Errorf("format requires <size_mb>")
		}
		var sizeMB int
		if _, err := fmt.Sscanf(args[0], "%d", &sizeMB); err != nil {
			return fmt.Errorf("bad size_mb: %v", err)
		}
		fs := vfs.New()
		if err := fs.Format(image, sizeMB, cacheCapacity); err != nil {
			return err
		}
		return fs.Unmount()
	}

	if cmd == "snapshot-restore" {
		if len(args) != 1 {
			return fmt.Errorf("snapshot-restore requires <name>")
		}
		fs := vfs.New()
		if err := fs.SetImage(image); err != nil {
			return err
		}
		return fs.RestoreSnapshot(args[0])
	}

	fs := vfs.New()
	if err := fs.Mount(image, cacheCapacity); err != nil {
		return err
	}
	defer fs.Unmount()

	switch cmd {
	case "mkdir":
		return requireArgs(args, 1, func() error { return fs.Mkdir(args[0], common0644()) })
	case "create":
		return requireArgs(args, 1, func() error { return fs.CreateFile(args[0], common0644()) })
	case "write":
		return requireArgs(args, 2, func() error { return writeFile(fs, args[0], []byte(args[1])) })
	case "read":
		return requireArgs(args, 1, func() error { return readFile(fs, args[0]) })
	case "ls":
		return requireArgs(args, 1, func() error { return list(fs, args[0]) })
	case "stat":
		stats, err := fs.GetFsStats()
		if err != nil {
			return err
		}
		fmt.Print(stats.String())
		return nil
	case "cache-stats":
		stats, err := fs.GetCacheStats()
		if err != nil {
			return err
		}
		fmt.Print(vfs.RenderCacheStats(stats))
		return nil
	case "journal-stats":
		stats, err := fs.GetJournalStats()
		if err != nil {
			return err
		}
		fmt.Print(vfs.RenderJournalStats(stats))
		return nil
	case "snapshot-create":
		return requireArgs(args, 1, func() error { return fs.CreateSnapshot(args[0]) })
	case "snapshot-list":
		for _, name := range fs.ListSnapshots() {
			fmt.Println(name)
		}
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func requireArgs(args []string, n int, f func() error) error {
	if len(args) != n {
		return fmt.Errorf("wrong number of arguments: want %d, got %d", n, len(args))
	}
	return f()
}

func common0644() uint32 { return 0o644 }

func writeFile(fs *vfs.FS, path string, data []byte) error {
	fd, err := fs.Open(path, vfs.FlagRead|vfs.FlagWrite|vfs.FlagTruncate)
	if err != nil {
		return err
	}
	defer fs.Close(fd)
	_, err = fs.Write(fd, data)
	return err
}

func readFile(fs *vfs.FS, path string) error {
	fd, err := fs.Open(path, vfs.FlagRead)
	if err != nil {
		return err
	}
	defer fs.Close(fd)
	const chunk = 4096
	for {
		buf, err := fs.Read(fd, chunk)
		if err != nil {
			return err
		}
		if len(buf) == 0 {
			break
		}
		if _, err := os.Stdout.Write(buf); err != nil {
			return err
		}
		if len(buf) < chunk {
			break
		}
	}
	fmt.Println()
	return nil
}

func list(fs *vfs.FS, path string) error {
	names, err := fs.Readdir(path)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}
