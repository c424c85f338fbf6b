package translate

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed scripts/*.py.tmpl
var scriptFS embed.FS

var scriptTemplates = template.Must(
	template.New("scripts").Option("missingkey=error").ParseFS(scriptFS, "scripts/*.py.tmpl"),
)

// Engine describes a local seq2seq model variant and the program that runs it.
type Engine struct {
	// Name labels logs, metrics and scratch files.
	Name string
	// Method is the translation method served by this engine.
	Method Method
	// Template is the embedded program template under scripts/.
	Template string

	TokenizerClass string
	ModelClass     string
	SourceTag      string
	TargetTag      string

	NumBeams          int
	MaxLength         int
	InputMaxLength    int
	NoRepeatNgramSize int

	// ErrorPrefix starts the line the program prints when it catches a failure.
	ErrorPrefix string
	// FailurePrefix starts the message of a non-zero exit.
	FailurePrefix string

	// RequiredFiles must all exist in the model directory.
	RequiredFiles []string
	// Env is added to the parent environment of the child process.
	Env []string
}

// MBartEngine runs the fine-tuned mBART-50 model. Sanskrit is not an mBART-50
// language, so decoding is forced into hi_IN, the closest Devanagari code.
var MBartEngine = Engine{
	Name:              "mbart",
	Method:            MethodLocal,
	Template:          "mbart.py.tmpl",
	TokenizerClass:    "MBart50TokenizerFast",
	ModelClass:        "MBartForConditionalGeneration",
	SourceTag:         "en_XX",
	TargetTag:         "hi_IN",
	NumBeams:          3,
	MaxLength:         128,
	InputMaxLength:    256,
	NoRepeatNgramSize: 2,
	ErrorPrefix:       "Model Error:",
	FailurePrefix:     "Translation failed",
	RequiredFiles:     []string{"config.json", "model.safetensors"},
	Env:               []string{"PYTORCH_CUDA_ALLOC_CONF=expandable_segments:True"},
}

// IndicTransEngine runs the IndicTrans2 model, which takes its language tags
// inline in the source text.
var IndicTransEngine = Engine{
	Name:           "indictrans",
	Method:         MethodModelV3,
	Template:       "indictrans.py.tmpl",
	TokenizerClass: "AutoTokenizer",
	ModelClass:     "AutoModelForSeq2SeqLM",
	SourceTag:      "eng_Latn",
	TargetTag:      "san_Deva",
	NumBeams:       5,
	MaxLength:      256,
	InputMaxLength: 256,
	ErrorPrefix:    "ModelV3 Error:",
	FailurePrefix:  "ModelV3 translation failed",
	RequiredFiles: []string{
		"config.json",
		"model.safetensors",
		"tokenizer_config.json",
		"special_tokens_map.json",
	},
}

// Script renders the program for the engine. The output depends only on the
// engine, so it is identical across calls.
func (e Engine) Script() (string, error) {
	var buf bytes.Buffer
	if err := scriptTemplates.ExecuteTemplate(&buf, e.Template, e); err != nil {
		return "", fmt.Errorf("render %s script: %w", e.Name, err)
	}
	return buf.String(), nil
}

// Invocation is everything needed to run one translation in a child process.
type Invocation struct {
	Engine        string
	Method        Method
	Script        string
	Args          []string
	Env           []string
	ModelDir      string
	ErrorPrefix   string
	FailurePrefix string
}

// BuildInvocation prepares a run of engine over text. The text and model
// directory are passed as process arguments and never become program source.
func BuildInvocation(text, modelDir string, engine Engine) (Invocation, error) {
	script, err := engine.Script()
	if err != nil {
		return Invocation{}, err
	}

	env := make([]string, 0, len(engine.Env)+1)
	env = append(env, "PYTHONIOENCODING=utf-8")
	env = append(env, engine.Env...)

	return Invocation{
		Engine:        engine.Name,
		Method:        engine.Method,
		Script:        script,
		Args:          []string{text, modelDir},
		Env:           env,
		ModelDir:      modelDir,
		ErrorPrefix:   engine.ErrorPrefix,
		FailurePrefix: engine.FailurePrefix,
	}, nil
}
