package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solovev/shortsgen/internal/audio"
	"github.com/solovev/shortsgen/internal/config"
	"github.com/solovev/shortsgen/internal/media"
	"github.com/solovev/shortsgen/internal/motion"
	"github.com/solovev/shortsgen/internal/render"
	"github.com/solovev/shortsgen/internal/retry"
	"github.com/solovev/shortsgen/internal/script"
	"github.com/solovev/shortsgen/internal/slides"
	"github.com/solovev/shortsgen/internal/system"
	"github.com/solovev/shortsgen/internal/timeline"
	"github.com/solovev/shortsgen/internal/tts"
)

// ScriptSource отдаёт текст для всей колоды слайдов.
type ScriptSource interface {
	Generate(ctx context.Context, contentType, topic string, slideCount int) (script.Content, error)
}

// Narrator озвучивает текст одного слайда в аудиофайл.
type Narrator interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// SlideRenderer рисует картинку одного слайда.
type SlideRenderer interface {
	Render(role slides.Role, text slides.Text, index int, outPath string) (slides.Slide, error)
}

// SegmentRenderer кодирует анимированный сегмент из картинки слайда.
type SegmentRenderer interface {
	Render(ctx context.Context, imagePath string, plan motion.Plan, outPath string) (media.Segment, error)
}

// VideoAssembler склеивает сегменты в немой таймлайн.
type VideoAssembler interface {
	Assemble(ctx context.Context, segments []media.Segment, outPath string) (timeline.Timeline, error)
}

// AudioMixer сводит озвучку и музыку в дорожку длиной ровно с таймлайн.
type AudioMixer interface {
	Mix(ctx context.Context, clips []audio.Clip, musicPath string, target float64, outPath string) (audio.Track, error)
}

// Pipeline прогоняет полный цикл: сценарий -> слайды -> озвучка -> сегменты ->
// таймлайн + звук -> финальный mp4. Поля-коллабораторы открыты, чтобы тесты
// могли подменять их фейками.
type Pipeline struct {
	Config *config.Config

	Script    ScriptSource
	Slides    SlideRenderer
	Voice     Narrator
	Planner   motion.Planner
	Segments  SegmentRenderer
	Assembler VideoAssembler
	Mixer     AudioMixer

	Runner   media.Runner                  // финальный мукс
	Probe    func(string) (float64, error) // длительность контейнера
	AudioDur func(string) (float64, error) // длительность клипа озвучки

	Theme slides.Theme

	OutPath   string // если задан, перекрывает имя по умолчанию
	MotionIn  string // траектории камеры из файла вместо планировщика
	MotionOut string // сохранить рассчитанные траектории
}

// New собирает пайплайн с боевыми коллабораторами поверх cfg.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	themeName := cfg.Slides.Theme
	if themeName == "" {
		themeName = cfg.Script.ContentType
	}
	theme, err := slides.LoadTheme(cfg.Slides.ThemesFile, themeName)
	if err != nil {
		return nil, err
	}

	ras, err := slides.NewRasterizer(slides.Params{
		Width:    cfg.Video.Width,
		Height:   cfg.Video.Height,
		Theme:    theme,
		FontFile: cfg.Slides.FontFile,
		QRURL:    cfg.Slides.QRURL,
	})
	if err != nil {
		return nil, err
	}

	encoder := cfg.Video.Encoder
	if encoder == "" {
		encoder = system.DetectH264Encoder()
	}
	params := render.Params{
		Width:   cfg.Video.Width,
		Height:  cfg.Video.Height,
		FPS:     cfg.Video.FPS,
		Encoder: encoder,
		Preset:  cfg.Video.Preset,
		CRF:     cfg.Video.CRF,
	}
	run := media.ExecRunner{}

	return &Pipeline{
		Config: cfg,
		Script: script.NewGenerator(cfg.Script.APIKey, cfg.Script.Model),
		Slides: ras,
		Voice:  tts.NewClient(cfg.Audio.Voice, cfg.Audio.Rate),
		Planner: motion.Planner{
			OutWidth:    cfg.Video.Width,
			OutHeight:   cfg.Video.Height,
			ZoomMin:     cfg.Motion.ZoomMin,
			ZoomMax:     cfg.Motion.ZoomMax,
			FocalBiasX:  cfg.Motion.FocalBiasX,
			FocalBiasY:  cfg.Motion.FocalBiasY,
			MinAnimated: cfg.Timing.MinAnimated,
			Seed:        cfg.Motion.Seed,
		},
		Segments:  render.New(params, run),
		Assembler: timeline.NewAssembler(params, cfg.Video.Crossfade, run),
		Mixer: audio.NewMixer(cfg.Video.FPS, cfg.Video.Crossfade,
			cfg.Audio.DuckGain, cfg.Audio.FullGain, cfg.Audio.Ramp, run),
		Runner:   run,
		Probe:    media.Duration,
		AudioDur: media.AudioDuration,
		Theme:    theme,
	}, nil
}

// deckSlide: что рисуем и что при этом произносим.
type deckSlide struct {
	role      slides.Role
	text      slides.Text
	narration string
}

type slideArtifacts struct {
	seg  media.Segment
	clip audio.Clip
	plan motion.Plan
}

// Run выполняет один прогон и возвращает путь к опубликованному файлу.
// Частичных результатов в выходном каталоге не остаётся: файл появляется
// там только после проверки длительности.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	started := time.Now()
	if err := p.Config.Validate(); err != nil {
		return "", err
	}

	if t := p.Config.Pipeline.RunTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t*float64(time.Second)))
		defer cancel()
	}

	scratch, err := os.MkdirTemp("", "shortsgen_")
	if err != nil {
		return "", err
	}
	defer func() {
		if p.Config.Pipeline.KeepScratch {
			fmt.Printf("[*] Промежуточные файлы оставлены в %s\n", scratch)
			return
		}
		os.RemoveAll(scratch)
	}()

	narrate := p.Config.Audio.Narration && p.Config.Audio.Voice != ""

	fmt.Println("--- [SHORTS PIPELINE] ---")
	fmt.Printf("[*] Тип: %s | Контент-слайдов: %d | %dx%d @ %d FPS\n",
		p.Config.Script.ContentType, p.Config.Script.Slides,
		p.Config.Video.Width, p.Config.Video.Height, p.Config.Video.FPS)
	fmt.Printf("[*] Озвучка: %v | Переход: %.2fs\n", narrate, p.Config.Video.Crossfade)
	fmt.Println("-------------------------")

	policy := retry.Policy{
		Attempts: p.Config.Pipeline.Retries,
		Delay:    time.Duration(p.Config.Pipeline.RetryDelay * float64(time.Second)),
	}

	fmt.Println("[*] Генерация сценария...")
	scriptStart := time.Now()
	var content script.Content
	err = retry.Do(ctx, policy, "gemini", func(ctx context.Context) error {
		var gerr error
		content, gerr = p.Script.Generate(ctx,
			p.Config.Script.ContentType, p.Config.Script.Topic, p.Config.Script.Slides)
		return gerr
	})
	if err != nil {
		return "", fmt.Errorf("генерация сценария: %w", err)
	}
	deck := p.buildDeck(content)
	scriptTime := time.Since(scriptStart)
	fmt.Printf("[*] Сценарий готов: %d слайдов\n", len(deck))

	var loaded []motion.Plan
	if p.MotionIn != "" {
		loaded, err = motion.ReadPlans(p.MotionIn)
		if err != nil {
			return "", fmt.Errorf("чтение траекторий камеры: %w", err)
		}
		fmt.Printf("[*] Траектории камеры загружены из %s\n", p.MotionIn)
	}

	// Послайдовая стадия. Слайды независимы, поэтому картинка, озвучка и
	// сегмент каждого считаются в своём воркере; число воркеров ограничено.
	workers := p.Config.Pipeline.Concurrency
	if workers <= 0 {
		workers = system.Workers()
	}
	system.CheckResources(workers)

	slidesStart := time.Now()
	arts := make([]slideArtifacts, len(deck))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, d := range deck {
		g.Go(func() error {
			slidePath := filepath.Join(scratch, fmt.Sprintf("slide_%03d.png", i+1))
			slide, err := p.Slides.Render(d.role, d.text, i, slidePath)
			if err != nil {
				return err
			}

			var narr float64
			var clip audio.Clip
			if narrate && d.narration != "" {
				ttsPath := filepath.Join(scratch, fmt.Sprintf("tts_%03d.mp3", i+1))
				err := retry.Do(gctx, policy, "edge-tts", func(ctx context.Context) error {
					return p.Voice.Synthesize(ctx, d.narration, ttsPath)
				})
				if err != nil {
					return fmt.Errorf("озвучка слайда %d: %w", i+1, err)
				}
				if narr, err = p.AudioDur(ttsPath); err != nil {
					return err
				}
				clip = audio.Clip{SlideIndex: i, Path: ttsPath, Duration: narr}
			}

			dur := p.slideDuration(narr)
			plan := p.plan(loaded, slide, dur, i, d.role)

			segPath := filepath.Join(scratch, fmt.Sprintf("seg_%03d.mp4", i+1))
			seg, err := p.Segments.Render(gctx, slidePath, plan, segPath)
			if err != nil {
				return err
			}

			arts[i] = slideArtifacts{seg: seg, clip: clip, plan: plan}
			fmt.Printf("[>] Сегмент %d/%d готов: %.2fs\n", i+1, len(deck), seg.Duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	slidesTime := time.Since(slidesStart)

	segments := make([]media.Segment, len(arts))
	plans := make([]motion.Plan, len(arts))
	var clips []audio.Clip
	for i, a := range arts {
		segments[i] = a.seg
		plans[i] = a.plan
		if a.clip.Path != "" {
			clips = append(clips, a.clip)
		}
	}

	if p.MotionOut != "" {
		if err := motion.WritePlans(p.MotionOut, plans); err != nil {
			return "", fmt.Errorf("запись траекторий камеры: %w", err)
		}
		fmt.Printf("[+] Траектории камеры сохранены: %s\n", p.MotionOut)
	}

	target := timeline.ExpectedTotal(segments, p.Config.Video.Crossfade)
	musicPath, err := p.musicPath()
	if err != nil {
		return "", err
	}

	// Таймлайн и звуковая дорожка не зависят друг от друга, когда все
	// длительности известны, поэтому собираются параллельно.
	fmt.Printf("[*] Сборка таймлайна и звука (цель %.2fs)...\n", target)
	joinStart := time.Now()
	videoPath := filepath.Join(scratch, "timeline.mp4")
	audioPath := filepath.Join(scratch, "audio.wav")

	var tl timeline.Timeline
	var track audio.Track
	g2, g2ctx := errgroup.WithContext(ctx)
	g2.Go(func() error {
		var aerr error
		tl, aerr = p.Assembler.Assemble(g2ctx, segments, videoPath)
		return aerr
	})
	g2.Go(func() error {
		var merr error
		track, merr = p.Mixer.Mix(g2ctx, clips, musicPath, target, audioPath)
		return merr
	})
	if err := g2.Wait(); err != nil {
		return "", err
	}
	joinTime := time.Since(joinStart)

	muxStart := time.Now()
	outPath, err := p.publish(ctx, tl, track)
	if err != nil {
		return "", err
	}
	muxTime := time.Since(muxStart)

	total := time.Since(started)
	fmt.Printf("[+] Готово за %.1fs (сценарий %.1fs, слайды %.1fs, сборка %.1fs, мукс %.1fs)\n",
		total.Seconds(), scriptTime.Seconds(), slidesTime.Seconds(), joinTime.Seconds(), muxTime.Seconds())
	fmt.Printf("[+] Файл: %s\n", outPath)
	return outPath, nil
}

// buildDeck раскладывает сценарий в колоду: интро, контент, аутро. Текст
// озвучки подставляется тот же, что уходит на картинку, включая дефолты.
func (p *Pipeline) buildDeck(content script.Content) []deckSlide {
	intro := content.IntroTitle
	if intro == "" {
		intro = p.Theme.IntroTitle
	}
	outro := content.OutroText
	if outro == "" {
		outro = slides.DefaultOutro
	}

	deck := make([]deckSlide, 0, content.SlideCount())
	deck = append(deck, deckSlide{
		role:      slides.RoleIntro,
		text:      slides.Text{Main: intro},
		narration: intro,
	})
	for _, s := range content.Slides {
		n := s.Main
		if s.Sub != "" {
			n = s.Main + ". " + s.Sub
		}
		deck = append(deck, deckSlide{
			role:      slides.RoleContent,
			text:      slides.Text{Main: s.Main, Sub: s.Sub},
			narration: n,
		})
	}
	deck = append(deck, deckSlide{
		role:      slides.RoleOutro,
		text:      slides.Text{Main: outro},
		narration: outro,
	})
	return deck
}

// slideDuration: озвучка плюс хвост, но не короче настроенного минимума,
// с выравниванием по сетке кадров.
func (p *Pipeline) slideDuration(narration float64) float64 {
	d := p.Config.Timing.SlideDuration
	if narration > 0 {
		if want := narration + p.Config.Timing.TailPadding; want > d {
			d = want
		}
	}
	return media.RoundToFrame(d, p.Config.Video.FPS)
}

// plan подставляет загруженную траекторию, если она про этот слайд и тот же
// размер кадра. Длительность всегда берётся своя: тайминг подчиняется
// озвучке, а не сохранённому файлу. Слишком короткие слайды планируются
// заново, чтобы сработало правило статичного кадра.
func (p *Pipeline) plan(loaded []motion.Plan, slide slides.Slide, dur float64, index int, role slides.Role) motion.Plan {
	if dur >= p.Config.Timing.MinAnimated {
		for _, lp := range loaded {
			if lp.SlideIndex == index && lp.SourceWidth == slide.Width && lp.SourceHeight == slide.Height {
				lp.Duration = dur
				return lp
			}
		}
	}
	return p.Planner.Plan(slide.Width, slide.Height, dur, index, string(role))
}

func (p *Pipeline) musicPath() (string, error) {
	if p.Config.Audio.MusicFile != "" {
		if _, err := os.Stat(p.Config.Audio.MusicFile); err != nil {
			return "", fmt.Errorf("музыка %s: %w", p.Config.Audio.MusicFile, err)
		}
		return p.Config.Audio.MusicFile, nil
	}
	return system.FindMusic(p.Config.Audio.MusicDir)
}

// publish муксит таймлайн со звуком во временное имя рядом с финальным и
// переименовывает только после проверки длительности. Битый или недописанный
// файл в выходной каталог не попадает.
func (p *Pipeline) publish(ctx context.Context, tl timeline.Timeline, track audio.Track) (string, error) {
	outPath := p.OutPath
	if outPath == "" {
		name := fmt.Sprintf("%s_%s_%s.mp4",
			p.Config.Pipeline.Prefix, time.Now().Format("20060102"), p.Config.Script.ContentType)
		outPath = filepath.Join(p.Config.Pipeline.OutputDir, name)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", err
	}

	// Суффикс .part прячет от ffmpeg расширение контейнера, поэтому формат
	// задаётся явно.
	part := outPath + ".part"
	args := []string{
		"-y",
		"-i", tl.Path,
		"-i", track.Path,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		part,
	}
	if err := p.Runner.Run(ctx, "ffmpeg", args...); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("мукс: %w", err)
	}

	got, err := p.Probe(part)
	if err != nil {
		os.Remove(part)
		return "", err
	}
	if !media.WithinFrame(p.Config.Video.FPS, got, tl.TotalDuration) {
		os.Remove(part)
		return "", &media.DurationMismatchError{
			Stage:     "mux",
			Want:      tl.TotalDuration,
			Got:       got,
			Tolerance: media.FramePeriod(p.Config.Video.FPS),
		}
	}
	return outPath, os.Rename(part, outPath)
}
