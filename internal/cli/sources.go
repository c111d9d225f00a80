package cli

import (
	"fmt"
	"strings"

	"github.com/dshills/inkstorm/internal/config"
	"github.com/dshills/inkstorm/internal/effects"
	"github.com/dshills/inkstorm/internal/hint"
)

// fence opens a code block; the language hint fires right after it.
const fence = "```"

type trigger struct {
	prefix    string
	lineStart bool
	src       hint.Source
}

// triggers builds the configured hint sources. The returned close function
// releases the Lua script, if any.
func triggers(cfg *config.Config) ([]trigger, func(), error) {
	var out []trigger
	if cfg.Hint.Emoji {
		out = append(out, trigger{prefix: ":", src: hint.NewEmojiSource(cfg.Hint.EmojiExtra)})
	}
	out = append(out, trigger{prefix: fence, lineStart: true, src: hint.NewLanguageSource(fence, cfg.Hint.Languages...)})

	closeFn := func() {}
	if cfg.Hint.Script != "" {
		lua, err := hint.LoadLuaSource(cfg.Hint.Script)
		if err != nil {
			return nil, nil, fmt.Errorf("load hint script %s: %w", cfg.Hint.Script, err)
		}
		out = append(out, trigger{prefix: cfg.Hint.ScriptTrigger, src: lua})
		closeFn = lua.Close
	}
	return out, closeFn, nil
}

// sessionOptions turns triggers into hint session options.
func sessionOptions(cfg *config.Config, ts []trigger) []hint.Option {
	opts := []hint.Option{
		hint.WithLimit(cfg.Hint.Limit),
		hint.WithMaxKey(cfg.Hint.MaxKey),
	}
	if d := cfg.Debounce.Hint.Std(); d > 0 {
		opts = append(opts, hint.WithDelay(effects.Clock{}, d))
	}
	for _, t := range ts {
		opts = append(opts, hint.WithTrigger(t.prefix, t.lineStart, t.src))
	}
	return opts
}

// match finds the trigger that starts text, preferring the longest prefix,
// and returns it with the rest of text as the key.
func match(ts []trigger, text string) (trigger, string, bool) {
	var (
		best  trigger
		found bool
	)
	for _, t := range ts {
		if strings.HasPrefix(text, t.prefix) && (!found || len(t.prefix) > len(best.prefix)) {
			best, found = t, true
		}
	}
	if !found {
		return trigger{}, "", false
	}
	return best, text[len(best.prefix):], true
}
