// Command pshell is the PSHELL control client (component F): it connects
// to a running pshell server over UDP or a UNIX datagram socket and
// either drives an interactive command loop against it, or runs a single
// command with -e and exits. Grounded on cmd/miniccc's Dial-then-loop
// shape and cmd/minimega's -e/-attach one-shot flag pair, using
// pkg/pshellline locally (not over the wire) to give the interactive
// loop history and TAB completion against the one query it can make
// cheaply: the server's own advertised command list.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/pshell-go/pshell/pkg/pshellcontrol"
	"github.com/pshell-go/pshell/pkg/pshelllog"
	"github.com/pshell-go/pshell/pkg/pshellline"
)

const banner = `pshell, a PSHELL process-specific embedded command shell control client.`

var (
	fServer  = flag.StringP("server", "s", "localhost", "UDP server host (ignored when -unix is set)")
	fPort    = flag.IntP("port", "p", 9999, "UDP server port")
	fUnix    = flag.String("unix", "", "connect to a UNIX-domain server by name instead of UDP")
	fTimeout = flag.IntP("timeout", "t", 2000, "default reply timeout in milliseconds; 0 means fire-and-forget")
	fExec    = flag.StringP("execute", "e", "", "run a single command and exit instead of entering the interactive loop")
	fCoordDir = flag.String("coord-dir", "", "lockfile/socket coordination directory (defaults to the package default)")
)

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: pshell [option]... <session-name>")
	flag.PrintDefaults()
}

// connect resolves the -unix/-server/-port flags into a single
// ConnectServer call.
func connect(c *pshellcontrol.Client, remote string) pshellcontrol.SID {
	if *fUnix != "" {
		return c.ConnectServer(remote, *fUnix, pshellcontrol.UnixPort, *fTimeout)
	}
	return c.ConnectServer(remote, *fServer, *fPort, *fTimeout)
}

func runOnce(c *pshellcontrol.Client, sid pshellcontrol.SID, command string, page bool) int {
	rc, payload := c.SendCommandExtract(sid, command)
	if payload != "" {
		if page {
			pageOutput(payload)
		} else {
			fmt.Print(payload)
			if !strings.HasSuffix(payload, "\n") {
				fmt.Println()
			}
		}
	}
	if rc != pshellcontrol.CommandSuccess {
		fmt.Fprintf(os.Stderr, "pshell: %s\n", rc)
		return 1
	}
	return 0
}

// pageOutput prints a reply directly unless it would scroll more than
// two screenfuls off a real terminal, in which case it's piped through
// $PAGER (falling back to "less") instead -- replies only get long
// enough to matter for things like "help" or "history" against a
// command-heavy server.
func pageOutput(payload string) {
	rows := 0
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if _, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			rows = h
		}
	}
	if rows == 0 || strings.Count(payload, "\n") < 2*rows {
		fmt.Print(payload)
		if !strings.HasSuffix(payload, "\n") {
			fmt.Println()
		}
		return
	}

	pager := os.Getenv("PAGER")
	if pager == "" {
		pager = "less"
	}
	cmd := exec.Command(pager)
	cmd.Stdin = strings.NewReader(payload)
	cmd.Stdout = os.Stdout
	if err := cmd.Run(); err != nil {
		pshelllog.Warningf("pshell: problem paging through %q: %v", pager, err)
		fmt.Print(payload)
	}
}

// fetchKeywords asks the connected server for its command list so the
// local editor can TAB-complete against it; failures just mean no
// completions, never a fatal error.
func fetchKeywords(c *pshellcontrol.Client, sid pshellcontrol.SID) []string {
	rc, payload := c.ExtractCommands(sid)
	if rc != pshellcontrol.CommandSuccess {
		return nil
	}
	var words []string
	for _, line := range strings.Split(payload, "\n") {
		if i := strings.IndexByte(line, ' '); i > 0 {
			words = append(words, line[:i])
		}
	}
	return words
}

func interactiveLoop(c *pshellcontrol.Client, sid pshellcontrol.SID, promptName string) {
	editor := pshellline.NewEditor()
	editor.Keywords = func() []string { return fetchKeywords(c, sid) }

	sess := &pshellline.Session{
		R: os.Stdin, W: os.Stdout, IsTTY: true, CRLF: false,
		Interrupt: func() {
			p, err := os.FindProcess(os.Getpid())
			if err == nil {
				p.Signal(os.Interrupt)
			}
		},
	}

	prompt := promptName + "> "
	if rc, p := c.ExtractPrompt(sid); rc == pshellcontrol.CommandSuccess && p != "" {
		prompt = p
	}

	fd := int(os.Stdin.Fd())
	for {
		// Raw mode only while editing, so that CR, TAB and arrow keys reach
		// the editor byte by byte; replies print in the normal mode.
		old, rawErr := term.MakeRaw(fd)
		line, idle, err := editor.ReadLine(sess, prompt)
		if rawErr == nil {
			term.Restore(fd, old)
		}
		if err != nil {
			if err == pshellline.ErrIdleTimeout {
				fmt.Println("\nidle timeout, exiting")
				return
			}
			return
		}
		if idle || strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == "quit" || strings.TrimSpace(line) == "q" {
			return
		}
		runOnce(c, sid, line, true)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	remote := flag.Arg(0)

	c := pshellcontrol.NewClient()
	if *fCoordDir != "" {
		c.CoordDir = *fCoordDir
	}

	sid := connect(c, remote)
	if sid == pshellcontrol.InvalidSID {
		fmt.Fprintf(os.Stderr, "pshell: could not connect to %q\n", remote)
		os.Exit(1)
	}
	defer c.DisconnectServer(sid)

	if *fExec != "" {
		os.Exit(runOnce(c, sid, *fExec, false))
	}

	pshelllog.SetLevel(pshelllog.Warning)
	interactiveLoop(c, sid, remote)
}
