package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/pipecat-cloud/pcc/pkg/pcc"
)

type startFlags struct {
	apiKey         string
	useDaily       bool
	data           string
	dataFile       string
	properties     string
	propertiesFile string
	noHistory      bool
}

func (f *startFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.apiKey, "api-key", "k", "", "public API key (defaults to public_key from config)")
	fs.BoolVarP(&f.useDaily, "use-daily", "D", false, "create a Daily room and print its link")
	fs.StringVarP(&f.data, "data", "d", "", "JSON payload passed to the agent")
	fs.StringVar(&f.dataFile, "data-file", "", "read the agent payload from a JSON/JSONC file")
	fs.StringVarP(&f.properties, "daily-properties", "p", "", "JSON object of Daily room properties")
	fs.StringVar(&f.propertiesFile, "daily-properties-file", "", "read Daily room properties from a JSON/JSONC file")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not record this start in the local history")
}

// request assembles the start request. File inputs are JSONC and are
// normalized to plain JSON; JSON validity is checked by the helper.
func (f *startFlags) request(agent, defaultKey string) (pcc.StartRequest, error) {
	data, err := readJSONInput("data", f.data, f.dataFile)
	if err != nil {
		return pcc.StartRequest{}, err
	}
	props, err := readJSONInput("daily-properties", f.properties, f.propertiesFile)
	if err != nil {
		return pcc.StartRequest{}, err
	}
	key := f.apiKey
	if key == "" {
		key = defaultKey
	}
	return pcc.StartRequest{
		AgentName:       agent,
		APIKey:          key,
		UseDaily:        f.useDaily,
		Data:            data,
		DailyProperties: props,
	}, nil
}

func readJSONInput(name, inline, file string) (string, error) {
	if inline != "" && file != "" {
		return "", fmt.Errorf("--%s and --%s-file are mutually exclusive", name, name)
	}
	if file == "" {
		return inline, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return strings.TrimSpace(string(jsonc.ToJSON(raw))), nil
}
