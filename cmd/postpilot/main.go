// Command postpilot generates Korean blog posts with an LLM and publishes
// them to Tistory through a captured browser session.
//
// Subcommands:
//
//	login       capture a Tistory login in a browser window
//	post        generate and publish a post for a topic
//	categories  list the blog's categories
//	list        list published posts
//	preview     generate a draft and serve it on localhost
//	settings    show effective config and remembered flag defaults
//	logout      forget the captured session
//
// The post, categories and logout subcommands print a single JSON line so
// scripts can drive them.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tkman/postpilot/internal/ai"
	"github.com/tkman/postpilot/internal/blog"
	"github.com/tkman/postpilot/internal/config"
	"github.com/tkman/postpilot/internal/generator"
	"github.com/tkman/postpilot/internal/images"
	"github.com/tkman/postpilot/internal/pattern"
	"github.com/tkman/postpilot/internal/preview"
	"github.com/tkman/postpilot/internal/session"
	"github.com/tkman/postpilot/internal/storage"
	"github.com/tkman/postpilot/internal/websearch"
)

const usage = `사용법: postpilot <command> [flags]

commands:
  login       브라우저에서 티스토리 로그인 후 세션 저장
  post        글 생성 및 발행 (--topic 필수)
  categories  카테고리 목록 조회
  list        발행된 글 목록 조회
  preview     초안 생성 후 localhost 미리보기
  settings    현재 설정과 기억된 기본값 조회
  logout      저장된 세션 삭제

post flags:
  --topic       글 주제 (필수)
  --tone        톤 (기본: 설정 파일)
  --model       모델 (기본: 설정 파일)
  --category    카테고리 이름 또는 ID
  --visibility  public | protected | private (기본: 설정 파일)
  --dry-run     생성만 하고 발행하지 않음
  --draft       임시저장
  --no-search   웹 검색 비활성화

tone/model/category/visibility는 마지막으로 지정한 값이 기억됩니다.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	app := &app{}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = app.runLogin(args)
	case "post":
		err = app.runPost(args)
	case "categories":
		err = app.runCategories(args)
	case "list":
		err = app.runList(args)
	case "preview":
		err = app.runPreview(args)
	case "settings":
		err = app.runSettings(args)
	case "logout":
		err = app.runLogout(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		output(map[string]any{"success": false, "error": err.Error()})
		os.Exit(1)
	}
}

// output prints one JSON line, the contract script callers parse.
func output(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding output", "error", err)
		return
	}
	fmt.Println(string(data))
}

// app carries the lazily-opened shared state of one invocation.
type app struct {
	cfg     *config.Config
	store   *storage.Store
	dataDir string
}

// commonFlags registers the flags every subcommand shares.
func (a *app) commonFlags(fs *flag.FlagSet) (configPath, dataDir *string) {
	defaultDir := defaultDataDir()
	configPath = fs.String("config", filepath.Join(defaultDir, "config.toml"), "path to config file")
	dataDir = fs.String("data-dir", defaultDir, "path to data directory")
	return configPath, dataDir
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".postpilot"
	}
	return filepath.Join(home, ".postpilot")
}

// setup loads config and opens the database.
func (a *app) setup(configPath, dataDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	a.dataDir = dataDir

	db, err := storage.OpenDatabase(filepath.Join(dataDir, "postpilot.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := storage.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	a.store = storage.NewStore(db)
	return nil
}

// blogClient rebuilds the manage API client from the captured session and
// detects the blog.
func (a *app) blogClient(ctx context.Context) (*blog.Client, error) {
	sess, err := a.store.CurrentSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("no saved session, run `postpilot login` first")
	}

	var cookies []blog.Cookie
	if err := json.Unmarshal(sess.Cookies, &cookies); err != nil {
		return nil, fmt.Errorf("decoding saved session: %w", err)
	}

	client := blog.NewClient(cookies)
	if _, err := client.DetectBlog(ctx); err != nil {
		return nil, fmt.Errorf("session may have expired, run `postpilot login` again: %w", err)
	}
	return client, nil
}

func (a *app) runLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	timeout := fs.Duration("timeout", 5*time.Minute, "how long to wait for the login")
	fs.Parse(args)

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	fmt.Println("브라우저 창에서 로그인을 완료하세요. 로그인이 감지되면 자동으로 저장됩니다.")
	fmt.Println("감지가 안 되면 로그인 후 Enter를 누르세요.")

	confirm := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			confirm <- struct{}{}
		}
	}()

	cookies, err := session.CaptureLogin(ctx, session.Options{Timeout: *timeout, Confirm: confirm})
	if err != nil {
		return err
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}
	id, err := a.store.SaveSession(ctx, "", data)
	if err != nil {
		return err
	}

	client := blog.NewClient(cookies)
	name, err := client.DetectBlog(ctx)
	if err != nil {
		slog.Warn("blog autodetection failed, will retry on next command", "error", err)
	} else if err := a.store.UpdateSessionBlogName(ctx, id, name); err != nil {
		slog.Warn("recording blog name failed", "error", err)
	}

	output(map[string]any{"success": true, "blog": name})
	return nil
}

func (a *app) runLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	fs.Parse(args)

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	if err := a.store.DeleteSessions(context.Background()); err != nil {
		return err
	}
	output(map[string]any{"success": true})
	return nil
}

func (a *app) runSettings(args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	fs.Parse(args)

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	stored, err := a.store.GetAllSettings(context.Background())
	if err != nil {
		return err
	}

	output(map[string]any{
		"success":       true,
		"provider":      a.cfg.AI.Provider,
		"model":         a.cfg.AI.Model,
		"tone":          a.cfg.AI.Tone,
		"apiKey":        maskKey(a.cfg.AI.APIKey),
		"searchEnabled": a.cfg.Search.Enabled,
		"defaults":      postDefaults(stored),
	})
	return nil
}

// postDefaults projects the remembered post.* settings into flag-name keys.
func postDefaults(stored map[string]json.RawMessage) map[string]string {
	defaults := make(map[string]string)
	for key, raw := range stored {
		name, ok := strings.CutPrefix(key, "post.")
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			continue
		}
		defaults[name] = value
	}
	return defaults
}

// maskKey shows enough of an API key to recognize it, nothing more.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:8] + "********"
}

type postFlags struct {
	topic      string
	tone       string
	model      string
	category   string
	visibility string
	dryRun     bool
	draft      bool
	noSearch   bool
}

func registerPostFlags(fs *flag.FlagSet) *postFlags {
	pf := &postFlags{}
	fs.StringVar(&pf.topic, "topic", "", "post topic (required)")
	fs.StringVar(&pf.tone, "tone", "", "writing tone")
	fs.StringVar(&pf.model, "model", "", "model identifier")
	fs.StringVar(&pf.category, "category", "", "category name or id")
	fs.StringVar(&pf.visibility, "visibility", "", "public | protected | private")
	fs.BoolVar(&pf.dryRun, "dry-run", false, "generate only, do not publish")
	fs.BoolVar(&pf.draft, "draft", false, "save as a draft instead of publishing")
	fs.BoolVar(&pf.noSearch, "no-search", false, "skip web search")
	return pf
}

var visibilityNames = map[string]int{
	"public":    blog.VisibilityPublic,
	"protected": blog.VisibilityProtected,
	"private":   blog.VisibilityPrivate,
}

// applyStoredDefaults fills flags the user left empty from the last
// explicitly used values, persisted in the settings table.
func (a *app) applyStoredDefaults(ctx context.Context, pf *postFlags) {
	fields := map[string]*string{
		"post.tone":       &pf.tone,
		"post.model":      &pf.model,
		"post.category":   &pf.category,
		"post.visibility": &pf.visibility,
	}
	for key, field := range fields {
		if *field != "" {
			continue
		}
		var stored string
		err := a.store.GetSetting(ctx, key, &stored)
		if err == nil {
			*field = stored
		} else if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("reading stored default failed", "key", key, "error", err)
		}
	}
}

// rememberDefaults persists the explicitly given flags as defaults for
// the next invocation.
func (a *app) rememberDefaults(ctx context.Context, pf *postFlags) {
	fields := map[string]string{
		"post.tone":       pf.tone,
		"post.model":      pf.model,
		"post.category":   pf.category,
		"post.visibility": pf.visibility,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := a.store.SetSetting(ctx, key, value); err != nil {
			slog.Warn("storing default failed", "key", key, "error", err)
		}
	}
}

// resolveVisibility maps the flag name, falling back to the configured
// default when no flag or stored value applies.
func (a *app) resolveVisibility(name string) (int, error) {
	if name == "" {
		return a.cfg.Blog.DefaultVisibility, nil
	}
	v, ok := visibilityNames[name]
	if !ok {
		return 0, fmt.Errorf("invalid --visibility %q", name)
	}
	return v, nil
}

func (a *app) runPost(args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	pf := registerPostFlags(fs)
	fs.Parse(args)

	if pf.topic == "" {
		return fmt.Errorf("--topic은 필수입니다")
	}

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	explicit := *pf
	a.applyStoredDefaults(ctx, pf)

	visibility, err := a.resolveVisibility(pf.visibility)
	if err != nil {
		return err
	}

	// Dry runs need no session; everything else publishes.
	var client *blog.Client
	if !pf.dryRun {
		var err error
		client, err = a.blogClient(ctx)
		if err != nil {
			return err
		}
	}

	draft, gen, err := a.generate(ctx, pf)
	if err != nil {
		return err
	}
	a.resolveImages(ctx, draft, client)
	draft.Content = blog.Sanitize(draft.Content)

	if pf.dryRun {
		out := map[string]any{
			"success": true,
			"title":   draft.Title,
			"tags":    draft.Tags,
			"preview": truncateRunes(draft.Content, 200),
		}
		if summary := searchSummary(gen); summary != nil {
			out["search"] = summary
		}
		output(out)
		return nil
	}

	if pf.draft {
		result, err := client.SaveDraft(ctx, draft.Title, draft.Content)
		if err != nil {
			return err
		}
		a.rememberDefaults(ctx, &explicit)
		output(map[string]any{
			"success":  true,
			"mode":     "draft",
			"title":    draft.Title,
			"tags":     draft.Tags,
			"sequence": result.Draft.Sequence,
		})
		return nil
	}

	categoryID, err := a.resolveCategory(ctx, client, pf.category)
	if err != nil {
		return err
	}

	result, err := client.Publish(ctx, blog.PostRequest{
		Title:      draft.Title,
		Content:    draft.Content,
		Visibility: visibility,
		Category:   categoryID,
		Tag:        draft.Tags,
		Thumbnail:  draft.ThumbnailKage,
	})
	if err != nil {
		return err
	}

	a.rememberDefaults(ctx, &explicit)
	a.patternStore().RecordPublished(
		draft.Title, draft.Meta.Topic, draft.Content,
		result.EntryURL, strconv.FormatInt(result.PostID, 10),
		draft.Meta.Category, draft.Meta.StructureType, draft.Meta.SectionKeys,
	)

	output(map[string]any{
		"success": true,
		"mode":    "publish",
		"title":   draft.Title,
		"tags":    draft.Tags,
		"url":     result.EntryURL,
	})
	return nil
}

// generate builds the generation session from config and produces a draft.
// The session comes back too so callers can report the search it ran.
func (a *app) generate(ctx context.Context, pf *postFlags) (*generator.Draft, *generator.Session, error) {
	model := pf.model
	if model == "" {
		model = a.cfg.AI.Model
	}
	provider, err := ai.NewProvider(ai.ProviderConfig{
		Provider: a.cfg.AI.Provider,
		APIKey:   a.cfg.AI.APIKey,
		Model:    model,
	})
	if err != nil {
		return nil, nil, err
	}

	var searcher generator.SearchClient
	if a.cfg.Search.Enabled {
		searcher = websearch.NewSearcher()
	}

	gen := generator.NewSession(generator.SessionConfig{
		Provider:         provider,
		Searcher:         searcher,
		Store:            a.patternStore(),
		Tone:             a.cfg.AI.Tone,
		NumericCap:       a.cfg.Patterns.NumericCap,
		RecentWindow:     a.cfg.Patterns.Window,
		SearchMaxResults: a.cfg.Search.MaxResults,
		SearchTimeout:    time.Duration(a.cfg.Search.TimeoutSeconds) * time.Second,
		EnrichTopResult:  a.cfg.Search.EnrichTopResult,
	})

	category := pf.category
	if category == "" {
		category = a.cfg.Blog.DefaultCategory
	}
	draft, err := gen.Generate(ctx, pf.topic, generator.Options{
		Tone:          pf.tone,
		Category:      category,
		DisableSearch: pf.noSearch,
	})
	if err != nil {
		return nil, nil, err
	}
	return draft, gen, nil
}

// searchSummary condenses a session's last search for CLI output, or nil.
func searchSummary(gen *generator.Session) map[string]any {
	last := gen.LastSearch()
	if last == nil {
		return nil
	}
	return map[string]any{
		"query":   last.Query,
		"results": len(last.Results),
	}
}

// resolveImages replaces image placeholders, uploading to the blog when a
// client is available.
func (a *app) resolveImages(ctx context.Context, draft *generator.Draft, client *blog.Client) {
	resolver := &images.Resolver{
		Unsplash: images.NewUnsplashClient(a.cfg.Images.UnsplashAccessKey),
	}
	if client != nil {
		resolver.Upload = func(ctx context.Context, data []byte, filename string) (string, string, error) {
			result, err := client.UploadImage(ctx, data, filename)
			if err != nil {
				return "", "", err
			}
			return result.URL, result.Kage, nil
		}
		resolver.KageMarker = blog.KageMarker
	}

	resolved := resolver.ReplacePlaceholders(ctx, draft.Content)
	draft.Content = resolved.HTML
	draft.ThumbnailURL = resolved.ThumbnailURL
	draft.ThumbnailKage = resolved.ThumbnailKage
}

// resolveCategory accepts a numeric id, a category name, or empty.
func (a *app) resolveCategory(ctx context.Context, client *blog.Client, category string) (int64, error) {
	if category == "" {
		category = a.cfg.Blog.DefaultCategory
	}
	if category == "" {
		return 0, nil
	}
	if id, err := strconv.ParseInt(category, 10, 64); err == nil {
		return id, nil
	}
	return client.CategoryID(ctx, category)
}

func (a *app) patternStore() *pattern.Store {
	path := a.cfg.Patterns.HistoryPath
	if path == "" {
		path = filepath.Join(a.dataDir, "patterns.jsonl")
	}
	return pattern.NewStore(path)
}

func (a *app) runCategories(args []string) error {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	fs.Parse(args)

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	client, err := a.blogClient(ctx)
	if err != nil {
		return err
	}

	cats, err := client.Categories(ctx)
	if err != nil {
		return err
	}

	type entry struct {
		Name string `json:"name"`
		ID   int64  `json:"id"`
	}
	entries := make([]entry, 0, len(cats))
	for _, c := range cats {
		entries = append(entries, entry{Name: c.Name, ID: c.ID})
	}
	output(map[string]any{"success": true, "categories": entries})
	return nil
}

func (a *app) runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	fs.Parse(args)

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	client, err := a.blogClient(ctx)
	if err != nil {
		return err
	}

	list, err := client.ListPosts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("총 %d개 글\n", list.TotalCount)
	for _, p := range list.Items {
		fmt.Printf("  [%d] %s (%s)\n", p.ID, p.Title, p.Visibility)
	}
	return nil
}

func (a *app) runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	configPath, dataDir := a.commonFlags(fs)
	pf := registerPostFlags(fs)
	fs.Parse(args)

	if pf.topic == "" {
		return fmt.Errorf("--topic은 필수입니다")
	}

	if err := a.setup(*configPath, *dataDir); err != nil {
		return err
	}
	defer a.store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.applyStoredDefaults(ctx, pf)

	draft, gen, err := a.generate(ctx, pf)
	if err != nil {
		return err
	}
	a.resolveImages(ctx, draft, nil)
	draft.Content = blog.Sanitize(draft.Content)

	if md, err := preview.ToMarkdown(draft.Content); err == nil {
		fmt.Printf("# %s\n\n%s\n\n", draft.Title, md)
	}
	if summary := searchSummary(gen); summary != nil {
		fmt.Printf("검색: %q 결과 %d건\n\n", summary["query"], summary["results"])
	}

	server := preview.NewServer()
	server.SetDraft(draft)

	addr := fmt.Sprintf("http://127.0.0.1:%d", a.cfg.Preview.Port)
	slog.Info("preview server running, Ctrl-C to stop", "addr", addr)
	go func() {
		time.Sleep(500 * time.Millisecond)
		openBrowser(addr)
	}()

	return server.Start(ctx, a.cfg.Preview.Port)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// openBrowser opens the given URL in the user's default browser.
// It is a fire-and-forget operation; errors are silently ignored.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
