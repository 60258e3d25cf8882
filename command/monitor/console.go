/*
 * rv32emu - Monitor console line editor and optional TCP listener.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/peterh/liner"
	"github.com/rcornwell/rv32emu/emu/machine"
)

// ConsoleMonitor runs the interactive, line-edited console on stdin
// until the operator quits or aborts with Ctrl-C/Ctrl-D.
func ConsoleMonitor(m *machine.Machine) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(CompleteCmd)

	for {
		command, err := line.Prompt("rv32> ")
		if err == nil {
			line.AppendHistory(command)
			out, quit, err := ProcessCommand(command, m)
			if err != nil {
				fmt.Println("error: " + err.Error())
			} else if out != "" {
				fmt.Print(out)
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("monitor console read failed", "error", err)
		return
	}
}

// ServeMonitor accepts TCP clients on addr that send one command per
// line, for an operator attaching remotely instead of over stdin. Each
// connection is served until quit or EOF, one connection at a time; only one console drives the
// machine at a time regardless of transport.
func ServeMonitor(addr string, m *machine.Machine) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	slog.Info("monitor console listening", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		serveConn(conn, m)
	}
}

func serveConn(conn net.Conn, m *machine.Machine) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		out, quit, err := ProcessCommand(scanner.Text(), m)
		if err != nil {
			io.WriteString(conn, "error: "+err.Error()+"\n")
		} else if out != "" {
			io.WriteString(conn, out)
		}
		if quit {
			return
		}
	}
}
