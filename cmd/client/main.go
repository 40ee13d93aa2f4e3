// Command client provides CLI tools for calling serving nodes.
//
// # Commands
//
// complete: Request a text completion.
//
//	client complete --target=http://localhost:8092 --message="Hello"
//
// reward: Send reward feedback for a previous completion.
//
//	client reward --target=http://localhost:8092 --message="Hello" --completion="echo: Hello" --reward=0.9
//
// embed: Request a text embedding.
//
//	client embed --target=http://localhost:8092 --text="Hello"
//
// speak: Request speech synthesis and write the audio bytes to a file.
//
//	client speak --target=http://localhost:8092 --text="Hello" --output=out.raw
//
// info: Fetch a node's identity descriptor.
//
//	client info --target=http://localhost:8092
//
// nodes: List verified records from a peer directory.
//
//	client nodes --directory=http://localhost:8080
package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/jonahkesoyan/bittensor/cmd/common"
	"github.com/jonahkesoyan/bittensor/dendrite"
	"github.com/jonahkesoyan/bittensor/peers"
	"github.com/jonahkesoyan/bittensor/protocol"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := splitFlags(os.Args[2:])

	var err error
	switch cmd {
	case "complete":
		err = runComplete(args)
	case "reward":
		err = runReward(args)
	case "embed":
		err = runEmbed(args)
	case "speak":
		err = runSpeak(args)
	case "info":
		err = runInfo(args)
	case "nodes":
		err = runNodes(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`client - CLI tools for calling serving nodes

Usage:
  client <command> [options]

Commands:
  complete  Request a text completion
  reward    Send reward feedback for a completion
  embed     Request a text embedding
  speak     Request speech synthesis
  info      Fetch a node's identity descriptor
  nodes     List records from a peer directory

Target selection (complete, reward, embed, speak):
  --target, -t     Node URL; the descriptor is fetched for the hotkey
  --directory, -d  Peer directory URL, combined with --hotkey
  --hotkey         Receiver hotkey when using --directory
  --key            Caller signing key (hex, ephemeral if empty)
  --timeout        Call timeout (default: 12s)

Run 'client <command> --help' for command-specific options.`)
}

// splitFlags normalizes "--flag=value" arguments into the two-element form
// the command parsers consume, so both spellings work.
func splitFlags(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			if name, value, ok := strings.Cut(arg, "="); ok {
				out = append(out, name, value)
				continue
			}
		}
		out = append(out, arg)
	}
	return out
}

// targetOptions carries the flags shared by all calling commands.
type targetOptions struct {
	target    string
	directory string
	hotkey    string
	keyHex    string
	timeout   time.Duration
}

// take consumes a shared flag at position i, returning the next index and
// whether the flag was recognized.
func (o *targetOptions) take(args []string, i int) (int, bool) {
	switch args[i] {
	case "--target", "-t":
		i++
		if i < len(args) {
			o.target = args[i]
		}
	case "--directory", "-d":
		i++
		if i < len(args) {
			o.directory = args[i]
		}
	case "--hotkey":
		i++
		if i < len(args) {
			o.hotkey = args[i]
		}
	case "--key":
		i++
		if i < len(args) {
			o.keyHex = args[i]
		}
	case "--timeout":
		i++
		if i < len(args) {
			o.timeout, _ = time.ParseDuration(args[i])
		}
	default:
		return i, false
	}
	return i, true
}

// resolve produces the receiver's identity record. An explicit --target
// keeps the given address but adopts the hotkey from the node's own
// descriptor; --directory looks the record up by hotkey.
func (o *targetOptions) resolve(ctx context.Context) (peers.NodeInfo, error) {
	if o.target != "" {
		node, err := peers.Fetch(ctx, nil, o.target)
		if err != nil {
			return peers.NodeInfo{}, err
		}
		return overrideAddress(node, o.target)
	}

	if o.directory != "" && o.hotkey != "" {
		return peers.NewClient(o.directory, nil).Get(ctx, o.hotkey)
	}

	return peers.NodeInfo{}, fmt.Errorf("--target or --directory with --hotkey is required")
}

// overrideAddress points the record at the URL the caller actually gave,
// since a locally bound node advertises 0.0.0.0.
func overrideAddress(node peers.NodeInfo, rawURL string) (peers.NodeInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return peers.NodeInfo{}, fmt.Errorf("invalid target: %w", err)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		host = u.Host
		portStr = "80"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return peers.NodeInfo{}, fmt.Errorf("invalid target port: %w", err)
	}

	node.IP = host
	node.ExternalFastAPIPort = port
	return node, nil
}

func (o *targetOptions) dendrite() (*dendrite.Dendrite, error) {
	key, err := common.LoadOrGenerateKey(o.keyHex, "")
	if err != nil {
		return nil, err
	}
	return dendrite.New(key)
}

func printOutcome(env *protocol.Envelope) {
	if env.Code() == protocol.CodeSuccess {
		fmt.Printf("%s %s %s\n", green("✓"), env.Name(), faint(fmt.Sprintf("(%.3fs)", env.Elapsed().Seconds())))
		return
	}
	fmt.Printf("%s %s: %s %s\n", red("✗"), env.Code(), env.Message(), faint(fmt.Sprintf("(%.3fs)", env.Elapsed().Seconds())))
}

// --- Complete Command ---

func runComplete(args []string) error {
	var (
		opts     targetOptions
		roles    []string
		messages []string
	)

	for i := 0; i < len(args); i++ {
		if next, ok := opts.take(args, i); ok {
			i = next
			continue
		}
		switch args[i] {
		case "--message", "-m":
			i++
			if i < len(args) {
				messages = append(messages, args[i])
			}
		case "--role":
			i++
			if i < len(args) {
				roles = append(roles, args[i])
			}
		case "--help", "-h":
			fmt.Println(`client complete - Request a text completion

Usage:
  client complete --target=<url> --message=<text>

Options:
  --message, -m   Prompt message (repeatable)
  --role          Role for the matching message (default: user)`)
			return nil
		}
	}

	if len(messages) == 0 {
		return fmt.Errorf("--message is required")
	}
	for len(roles) < len(messages) {
		roles = append(roles, "user")
	}

	ctx := context.Background()
	target, err := opts.resolve(ctx)
	if err != nil {
		return err
	}
	d, err := opts.dendrite()
	if err != nil {
		return err
	}

	call := dendrite.NewTextCompletion(roles, messages, opts.timeout)
	env, err := d.Apply(ctx, target, call)
	if err != nil {
		return err
	}

	printOutcome(env)
	if env.Code() == protocol.CodeSuccess {
		fmt.Printf("%s %s\n", bold("Completion:"), call.Completion())
	}
	return nil
}

// --- Reward Command ---

func runReward(args []string) error {
	var (
		opts       targetOptions
		roles      []string
		messages   []string
		completion string
		rewards    []float64
	)

	for i := 0; i < len(args); i++ {
		if next, ok := opts.take(args, i); ok {
			i = next
			continue
		}
		switch args[i] {
		case "--message", "-m":
			i++
			if i < len(args) {
				messages = append(messages, args[i])
			}
		case "--role":
			i++
			if i < len(args) {
				roles = append(roles, args[i])
			}
		case "--completion", "-c":
			i++
			if i < len(args) {
				completion = args[i]
			}
		case "--reward":
			i++
			if i < len(args) {
				reward, err := strconv.ParseFloat(args[i], 64)
				if err != nil {
					return fmt.Errorf("invalid reward: %w", err)
				}
				rewards = append(rewards, reward)
			}
		case "--help", "-h":
			fmt.Println(`client reward - Send reward feedback for a completion

Usage:
  client reward --target=<url> --message=<text> --completion=<text> --reward=<value>

Options:
  --message, -m     Original prompt message (repeatable)
  --role            Role for the matching message (default: user)
  --completion, -c  The completion being scored
  --reward          Reward value (repeatable)`)
			return nil
		}
	}

	if len(messages) == 0 || completion == "" || len(rewards) == 0 {
		return fmt.Errorf("--message, --completion and --reward are required")
	}
	for len(roles) < len(messages) {
		roles = append(roles, "user")
	}

	ctx := context.Background()
	target, err := opts.resolve(ctx)
	if err != nil {
		return err
	}
	d, err := opts.dendrite()
	if err != nil {
		return err
	}

	env, err := d.Apply(ctx, target, dendrite.NewTextBackward(roles, messages, completion, rewards, opts.timeout))
	if err != nil {
		return err
	}

	printOutcome(env)
	return nil
}

// --- Embed Command ---

func runEmbed(args []string) error {
	var (
		opts targetOptions
		text string
	)

	for i := 0; i < len(args); i++ {
		if next, ok := opts.take(args, i); ok {
			i = next
			continue
		}
		switch args[i] {
		case "--text":
			i++
			if i < len(args) {
				text = args[i]
			}
		case "--help", "-h":
			fmt.Println(`client embed - Request a text embedding

Usage:
  client embed --target=<url> --text=<text>`)
			return nil
		}
	}

	if text == "" {
		return fmt.Errorf("--text is required")
	}

	ctx := context.Background()
	target, err := opts.resolve(ctx)
	if err != nil {
		return err
	}
	d, err := opts.dendrite()
	if err != nil {
		return err
	}

	call := dendrite.NewTextEmbedding(text, opts.timeout)
	env, err := d.Apply(ctx, target, call)
	if err != nil {
		return err
	}

	printOutcome(env)
	if env.Code() != protocol.CodeSuccess {
		return nil
	}

	embedding := call.Embedding()
	if len(embedding) == 0 {
		fmt.Println("Empty embedding")
		return nil
	}

	fmt.Printf("%s %d x %d\n", bold("Embedding:"), len(embedding), len(embedding[0]))
	preview := embedding[0]
	if len(preview) > 8 {
		preview = preview[:8]
	}
	fmt.Printf("  %v ...\n", preview)
	return nil
}

// --- Speak Command ---

func runSpeak(args []string) error {
	var (
		opts       targetOptions
		text       string
		outputFile string
	)

	for i := 0; i < len(args); i++ {
		if next, ok := opts.take(args, i); ok {
			i = next
			continue
		}
		switch args[i] {
		case "--text":
			i++
			if i < len(args) {
				text = args[i]
			}
		case "--output", "-o":
			i++
			if i < len(args) {
				outputFile = args[i]
			}
		case "--help", "-h":
			fmt.Println(`client speak - Request speech synthesis

Usage:
  client speak --target=<url> --text=<text> --output=<file>`)
			return nil
		}
	}

	if text == "" {
		return fmt.Errorf("--text is required")
	}
	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}

	ctx := context.Background()
	target, err := opts.resolve(ctx)
	if err != nil {
		return err
	}
	d, err := opts.dendrite()
	if err != nil {
		return err
	}

	call := dendrite.NewTextToSpeech(text, opts.timeout)
	env, err := d.Apply(ctx, target, call)
	if err != nil {
		return err
	}

	printOutcome(env)
	if env.Code() != protocol.CodeSuccess {
		return nil
	}

	if err := os.WriteFile(outputFile, call.Speech(), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("%s %d bytes to %s\n", bold("Wrote:"), len(call.Speech()), outputFile)
	return nil
}

// --- Info Command ---

func runInfo(args []string) error {
	var target string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--target", "-t":
			i++
			if i < len(args) {
				target = args[i]
			}
		case "--help", "-h":
			fmt.Println(`client info - Fetch a node's identity descriptor

Usage:
  client info --target=<url>`)
			return nil
		}
	}

	if target == "" {
		return fmt.Errorf("--target is required")
	}

	node, err := peers.Fetch(context.Background(), nil, target)
	if err != nil {
		return err
	}

	printNode(node)
	return nil
}

// --- Nodes Command ---

func runNodes(args []string) error {
	var directory string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--directory", "-d":
			i++
			if i < len(args) {
				directory = args[i]
			}
		case "--help", "-h":
			fmt.Println(`client nodes - List verified records from a peer directory

Usage:
  client nodes --directory=<url>`)
			return nil
		}
	}

	if directory == "" {
		return fmt.Errorf("--directory is required")
	}

	nodes, err := peers.NewClient(directory, nil).List(context.Background())
	if err != nil {
		return err
	}

	if len(nodes) == 0 {
		fmt.Println("No nodes registered")
		return nil
	}

	fmt.Printf("%s %d\n", bold("Nodes:"), len(nodes))
	for _, node := range nodes {
		printNode(node)
	}
	return nil
}

func printNode(node peers.NodeInfo) {
	serving := red("not serving")
	if node.IsServing() {
		serving = green("serving")
	}
	fmt.Printf("%s %s\n", bold(protocol.ShortAddress(node.Hotkey)), serving)
	fmt.Printf("  version=%d ip=%s port=%d api=%d dial=%s\n",
		node.Version, node.IP, node.Port, node.FastAPIPort, node.URL())
}
