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

package notify

import (
	"net/smtp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"
)

var _ = Describe("Notify", func() {
	var (
		sentAddr string
		sentFrom string
		sentTo   []string
		sentMsg  []byte
		calls    int
	)

	BeforeEach(func() {
		sentAddr = ""
		sentFrom = ""
		sentTo = nil
		sentMsg = nil
		calls = 0

		sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			sentAddr = addr
			sentFrom = from
			sentTo = to
			sentMsg = msg
			calls++
			return nil
		}
	})

	AfterEach(func() {
		sendMail = smtp.SendMail
		viper.Set("notify.smtp.host", "")
		viper.Set("notify.smtp.port", 0)
		viper.Set("notify.smtp.username", "")
		viper.Set("notify.smtp.password", "")
		viper.Set("notify.from", "")
		viper.Set("notify.to", "")
	})

	When("no server is configured", func() {
		It("does nothing", func() {
			Expect(Enabled()).To(BeFalse())
			Expect(Send("subject", "body")).To(Succeed())
			Expect(calls).To(BeZero())
		})
	})

	When("a server is configured", func() {
		BeforeEach(func() {
			viper.Set("notify.smtp.host", "mail.example.com")
			viper.Set("notify.smtp.port", 2525)
			viper.Set("notify.smtp.username", "pipeline@example.com")
			viper.Set("notify.smtp.password", "hunter2")
			viper.Set("notify.from", "screener@example.com")
			viper.Set("notify.to", "quant@example.com")
		})

		It("mails the configured recipient", func() {
			Expect(Enabled()).To(BeTrue())
			Expect(Send("pipeline finished", "25 tickers, 6300 rows")).To(Succeed())

			Expect(calls).To(Equal(1))
			Expect(sentAddr).To(Equal("mail.example.com:2525"))
			Expect(sentFrom).To(Equal("screener@example.com"))
			Expect(sentTo).To(Equal([]string{"quant@example.com"}))

			msg := string(sentMsg)
			Expect(msg).To(ContainSubstring("From: screener@example.com\r\n"))
			Expect(msg).To(ContainSubstring("To: quant@example.com\r\n"))
			Expect(msg).To(ContainSubstring("Subject: pipeline finished\r\n"))
			Expect(msg).To(HaveSuffix("\r\n\r\n25 tickers, 6300 rows"))
		})

		It("defaults the port and sender", func() {
			viper.Set("notify.smtp.port", 0)
			viper.Set("notify.from", "")

			Expect(Send("pipeline finished", "ok")).To(Succeed())
			Expect(sentAddr).To(Equal("mail.example.com:587"))
			Expect(sentFrom).To(Equal("pipeline@example.com"))
		})
	})
})
