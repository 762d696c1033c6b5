// Command adnsq is a general-purpose resolver client: it submits one
// query per argument and prints the answer, in the spirit of adh-query.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nandub/adns/internal/addrfam"
	"github.com/nandub/adns/internal/config"
	"github.com/nandub/adns/internal/logging"

	"github.com/nandub/adns"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (servers/search/ndots/sortlist)")
		server     = flag.String("server", "", "override nameserver, HOST[:53]")
		qtypeFlag  = flag.String("type", "addr", "query type: a, aaaa, addr, ns, mx, cname, txt, hinfo, soa, rp, ptr")
		search     = flag.Bool("search", false, "apply the configured search list")
		tcp        = flag.Bool("tcp", false, "use TCP from the start")
		showOwner  = flag.Bool("owner", false, "print the owner name alongside each answer")
		showTTL    = flag.Bool("ttl", false, "print a human TTL alongside each answer")
		timeout    = flag.Duration("timeout", 5*time.Second, "per-query deadline")
	)
	flag.Parse()

	names := flag.Args()
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: adnsq [flags] name [name...]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsq: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.Servers = []string{*server}
	}

	rrtype, err := parseRRType(*qtypeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsq: %v\n", err)
		os.Exit(1)
	}

	h, err := adns.Init(toHandleConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "adnsq: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	var flags adns.SubmitFlags
	if *search {
		flags |= adns.FlagSearch
	}
	if *tcp {
		flags |= adns.FlagUseVC
	}

	exit := 0
	for _, name := range names {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		qu, err := h.Submit(name, rrtype, flags)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: submit: %v\n", name, err)
			cancel()
			exit = 1
			continue
		}
		ans, err := h.Wait(ctx, qu)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			exit = 1
			continue
		}
		printAnswer(ans, *showOwner, *showTTL)
		if ans.Status != adns.StatusOK {
			exit = 1
		}
	}
	os.Exit(exit)
}

func printAnswer(ans *adns.Answer, showOwner, showTTL bool) {
	var b strings.Builder
	if ans.Status != adns.StatusOK {
		fmt.Printf("; failed %s %q\n", ans.Status, ans.Status.Description())
		return
	}
	prefix := func() {
		if showOwner {
			b.WriteString(ans.Owner)
			b.WriteByte(' ')
		}
		if showTTL {
			b.WriteString(humanize.RelTime(time.Now(), time.Now().Add(ans.TTL), "", ""))
			b.WriteByte(' ')
		}
	}
	switch {
	case len(ans.Addrs) > 0:
		for _, ip := range ans.Addrs {
			b.Reset()
			prefix()
			fmt.Fprintf(&b, "%s", ip)
			fmt.Println(b.String())
		}
	case len(ans.Names) > 0:
		for i, n := range ans.Names {
			b.Reset()
			prefix()
			if i < len(ans.MXPrefs) {
				fmt.Fprintf(&b, "%d %s", ans.MXPrefs[i], n)
			} else {
				fmt.Fprintf(&b, "%s", n)
			}
			fmt.Println(b.String())
		}
	case len(ans.Texts) > 0:
		for _, parts := range ans.Texts {
			b.Reset()
			prefix()
			fmt.Fprintf(&b, "%q", strings.Join(parts, ""))
			fmt.Println(b.String())
		}
	case ans.SOA != nil:
		fmt.Printf("%s %s %d %d %d %d %d\n", ans.SOA.MName, ans.SOA.RName,
			ans.SOA.Serial, ans.SOA.Refresh, ans.SOA.Retry, ans.SOA.Expire, ans.SOA.Minimum)
	case ans.RP != nil:
		fmt.Printf("%s %s\n", ans.RP.Mailbox, ans.RP.TXTDom)
	default:
		fmt.Println("; nodata")
	}
}

func parseRRType(s string) (adns.RRType, error) {
	switch strings.ToLower(s) {
	case "a":
		return adns.RRTypeA, nil
	case "aaaa":
		return adns.RRTypeAAAA, nil
	case "addr":
		return adns.RRTypeADDR, nil
	case "ns":
		return adns.RRTypeNS, nil
	case "ns-raw":
		return adns.RRTypeNSRaw, nil
	case "mx":
		return adns.RRTypeMX, nil
	case "mx-raw":
		return adns.RRTypeMXRaw, nil
	case "cname":
		return adns.RRTypeCNAME, nil
	case "txt":
		return adns.RRTypeTXT, nil
	case "hinfo":
		return adns.RRTypeHINFO, nil
	case "soa":
		return adns.RRTypeSOA, nil
	case "soa-raw":
		return adns.RRTypeSOARaw, nil
	case "rp":
		return adns.RRTypeRP, nil
	case "rp-raw":
		return adns.RRTypeRPRaw, nil
	case "ptr":
		return adns.RRTypePTR, nil
	case "ptr-raw":
		return adns.RRTypePTRRaw, nil
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return adns.RRType(n), nil
		}
		return 0, fmt.Errorf("unknown query type %q", s)
	}
}

func toHandleConfig(cfg *config.Config) adns.Config {
	var flags adns.InitFlags
	if cfg.Flags&config.FlagEDNS != 0 {
		flags |= adns.InitEDNS
	}
	if cfg.Flags&config.FlagCheckC != 0 {
		flags |= adns.InitCheckC
	}

	resolved := make([]addrfam.SortListEntry, 0, len(cfg.SortList))
	for _, e := range cfg.SortList {
		entry, err := e.Resolve()
		if err != nil {
			continue
		}
		resolved = append(resolved, entry)
	}

	return adns.Config{
		Servers:          cfg.Servers,
		Search:           cfg.Search,
		NDots:            cfg.NDots,
		SortList:         resolved,
		Flags:            flags,
		UDPRetries:       cfg.UDPRetries,
		UDPRetryInterval: 0,
		TCPTimeout:       0,
		Logger: logging.Configure(logging.Config{
			Level:      cfg.Logging.Level,
			Structured: cfg.Logging.Structured,
		}),
	}
}
