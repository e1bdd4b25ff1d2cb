// Command e2fsck checks and repairs a second-extended filesystem inside a
// raw disk image: -p reports a partition's MBR entry, -f runs the four
// repair passes against it. When both are given, -p runs first.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fsimg/e2fsck/backend/file"
	"github.com/fsimg/e2fsck/e2fs"
	"github.com/fsimg/e2fsck/partition"
	"github.com/sirupsen/logrus"
)

func main() {
	image := flag.String("i", "", "path to the disk image")
	printPart := flag.Int("p", -1, "print the MBR entry for partition n (negative = not requested)")
	fixPart := flag.Int("f", -1, "repair partition n (0 = every second-extended partition)")
	verbose := flag.Bool("v", false, "verbose: debug logging and before/after patch dumps")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if *image == "" {
		fmt.Fprintln(os.Stderr, "e2fsck: -i is required")
		os.Exit(1)
	}

	if *printPart < 0 && *fixPart < 0 {
		fmt.Fprintln(os.Stderr, "e2fsck: at least one of -p or -f is required")
		os.Exit(1)
	}

	status := 0

	if *printPart >= 0 {
		if !runPrint(*image, *printPart) {
			status = 1
		}
	}

	if *fixPart >= 0 {
		if !runFix(*image, *fixPart, *verbose) {
			status = 1
		}
	}

	os.Exit(status)
}

func runPrint(imagePath string, n int) bool {
	storage, err := file.OpenFromPath(imagePath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2fsck: %v\n", err)
		return false
	}
	defer storage.Close()

	pt, err := partition.Resolve(storage, n)
	if err != nil {
		fmt.Println("-1")
		return false
	}
	fmt.Println(pt.String())
	return true
}

func runFix(imagePath string, n int, verbose bool) bool {
	storage, err := file.OpenFromPath(imagePath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "e2fsck: %v\n", err)
		return false
	}
	defer storage.Close()

	if err := e2fs.FixFS(storage, n, e2fs.Options{Verbose: verbose}); err != nil {
		fmt.Fprintf(os.Stderr, "e2fsck: %v\n", err)
		return false
	}
	return true
}
