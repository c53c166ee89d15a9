// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Display the configured screening universe",
	Run: func(cmd *cobra.Command, args []string) {
		universe, err := loadUniverse()
		if err != nil {
			log.Fatal().Err(err).Msg("could not load universe")
		}

		var sb strings.Builder
		sb.WriteString("# Universe\n\n")
		sb.WriteString("| Ticker | Name |\n")
		sb.WriteString("| ------ | ---- |\n")
		for _, entry := range universe.Entries {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", entry.Ticker, entry.Name))
		}
		sb.WriteString(fmt.Sprintf("\n%d tickers\n", universe.Len()))

		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(sb.String())
		if err != nil {
			log.Fatal().Err(err).Msg("could not render universe document")
		}

		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(universeCmd)
}
