// Command adnsrevfilter is a text filter: it copies stdin to stdout,
// replacing every IPv4 address it finds with its PTR name when one
// resolves before the given timeout, in the spirit of adnsresfilter.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"time"

	"github.com/nandub/adns/internal/addrfam"
	"github.com/nandub/adns/internal/config"
	"github.com/nandub/adns/internal/logging"

	"github.com/nandub/adns"
)

var ipv4Pattern = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		timeout    = flag.Duration("timeout", 10*time.Second, "per-address resolve timeout")
		unchecked  = flag.Bool("unchecked", false, "use PTR-raw instead of the validating PTR type")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsrevfilter: %v\n", err)
		os.Exit(2)
	}

	h, err := adns.Init(adns.Config{
		Servers:    cfg.Servers,
		NDots:      cfg.NDots,
		UDPRetries: cfg.UDPRetries,
		Logger:     logging.Configure(logging.Config{Level: cfg.Logging.Level}),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsrevfilter: %v\n", err)
		os.Exit(2)
	}
	defer h.Close()

	rrtype := adns.RRTypePTR
	if *unchecked {
		rrtype = adns.RRTypePTRRaw
	}

	cache := make(map[string]string)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		replaced := ipv4Pattern.ReplaceAllStringFunc(line, func(match string) string {
			if name, ok := cache[match]; ok {
				return name
			}
			name := resolvePTR(h, match, rrtype, *timeout)
			cache[match] = name
			return name
		})
		fmt.Fprintln(out, replaced)
	}
}

// resolvePTR returns the first PTR name for addr, or addr itself
// unchanged if it doesn't parse, times out, or fails to resolve.
func resolvePTR(h *adns.Handle, addr string, rrtype adns.RRType, timeout time.Duration) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}
	owner, err := addrfam.ReverseName(ip)
	if err != nil {
		return addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	qu, err := h.Submit(owner, rrtype, 0)
	if err != nil {
		return addr
	}
	ans, err := h.Wait(ctx, qu)
	if err != nil || ans.Status != adns.StatusOK || len(ans.Names) == 0 {
		return addr
	}
	return ans.Names[0]
}
