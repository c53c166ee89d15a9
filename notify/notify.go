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

// Package notify mails pipeline run reports over SMTP. Mail is optional; when
// no server is configured every call is a no-op.
package notify

import (
	"fmt"
	"net/smtp"

	"github.com/spf13/viper"
)

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

// Enabled reports whether an SMTP server and recipient are configured.
func Enabled() bool {
	return viper.GetString("notify.smtp.host") != "" && viper.GetString("notify.to") != ""
}

// Send mails a plain-text message to the configured recipient.
func Send(subject string, body string) error {
	if !Enabled() {
		return nil
	}

	host := viper.GetString("notify.smtp.host")
	port := viper.GetInt("notify.smtp.port")
	if port == 0 {
		port = 587
	}

	username := viper.GetString("notify.smtp.username")
	password := viper.GetString("notify.smtp.password")

	from := viper.GetString("notify.from")
	if from == "" {
		from = username
	}
	to := viper.GetString("notify.to")

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	return sendMail(addr, auth, from, []string{to}, buildMessage(from, to, subject, body))
}

func buildMessage(from string, to string, subject string, body string) []byte {
	msg := fmt.Sprintf("From: %s\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", to)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: text/plain; charset=\"utf-8\"\r\n"
	msg += "\r\n"
	msg += body
	return []byte(msg)
}
