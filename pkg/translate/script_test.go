package translate

import (
	"slices"
	"strings"
	"testing"
)

func TestEngineScript(t *testing.T) {
	tests := []struct {
		engine Engine
		want   []string
	}{
		{
			engine: MBartEngine,
			want: []string{
				"from transformers import MBart50TokenizerFast, MBartForConditionalGeneration",
				`tokenizer.src_lang = "en_XX"`,
				`tokenizer.lang_code_to_id["hi_IN"]`,
				"num_beams=3",
				"no_repeat_ngram_size=2",
				`"Model Error: "`,
				"sys.argv[1], sys.argv[2]",
			},
		},
		{
			engine: IndicTransEngine,
			want: []string{
				"from transformers import AutoTokenizer, AutoModelForSeq2SeqLM",
				"eng_Latn",
				"san_Deva",
				"num_beams=5",
				`"ModelV3 Error: "`,
				"sys.argv[1], sys.argv[2]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.engine.Name, func(t *testing.T) {
			script, err := tt.engine.Script()
			if err != nil {
				t.Fatalf("Script: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(script, want) {
					t.Errorf("script missing %q", want)
				}
			}
			if strings.Contains(script, "{{") || strings.Contains(script, "<no value>") {
				t.Error("script has unrendered template fields")
			}
		})
	}
}

func TestEngineScriptDeterministic(t *testing.T) {
	for _, engine := range []Engine{MBartEngine, IndicTransEngine} {
		first, err := engine.Script()
		if err != nil {
			t.Fatalf("%s: %v", engine.Name, err)
		}
		second, err := engine.Script()
		if err != nil {
			t.Fatalf("%s: %v", engine.Name, err)
		}
		if first != second {
			t.Errorf("%s: Script() differs between calls", engine.Name)
		}
	}
}

func TestEngineScriptUnknownTemplate(t *testing.T) {
	engine := MBartEngine
	engine.Template = "missing.py.tmpl"

	if _, err := engine.Script(); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestBuildInvocation(t *testing.T) {
	text := `Say "namaste"; import os; os.system("rm -rf /")`
	inv, err := BuildInvocation(text, "/models/v2", MBartEngine)
	if err != nil {
		t.Fatalf("BuildInvocation: %v", err)
	}

	if !slices.Equal(inv.Args, []string{text, "/models/v2"}) {
		t.Errorf("Args = %q", inv.Args)
	}
	if strings.Contains(inv.Script, text) || strings.Contains(inv.Script, "/models/v2") {
		t.Error("text and model path must not be embedded in the script")
	}
	if !slices.Contains(inv.Env, "PYTHONIOENCODING=utf-8") {
		t.Errorf("Env = %q, missing PYTHONIOENCODING", inv.Env)
	}
	if !slices.Contains(inv.Env, "PYTORCH_CUDA_ALLOC_CONF=expandable_segments:True") {
		t.Errorf("Env = %q, missing engine env", inv.Env)
	}
	if inv.Method != MethodLocal || inv.Engine != "mbart" {
		t.Errorf("Method/Engine = %s/%s", inv.Method, inv.Engine)
	}
	if inv.ErrorPrefix != "Model Error:" || inv.FailurePrefix != "Translation failed" {
		t.Errorf("prefixes = %q/%q", inv.ErrorPrefix, inv.FailurePrefix)
	}

	// Different texts share the same program.
	other, err := BuildInvocation("something else", "/models/v2", MBartEngine)
	if err != nil {
		t.Fatal(err)
	}
	if other.Script != inv.Script {
		t.Error("script should not depend on the text")
	}
}
