/*
Package lesst scripts interactive command-line programs and records what
they print.

A Cmder owns one child process: it spawns the command through the shell,
accumulates stdout and stderr in the background, writes lines or raw key
sequences to stdin, and offers polling waits (Wait, WaitForData, WaitFor)
over the buffered output. Assertions never abort a scenario; failures are
collected as FailureRecords.

A TestFlow runs registered cases one at a time, each against a fresh
Cmder, calls lifecycle hooks around them and aggregates a Report. Section
wraps a TestFlow run with a banner and an optional summary:

	spec := lesst.CmdLine("node", []string{"ask.js"})
	report, err := lesst.Section(ctx, lesst.SectionOptions{Title: "ask", Stdout: true, Analysis: true},
		func(f *lesst.TestFlow) error {
			return f.Test("echoes the name", spec, func(ctx context.Context, c *lesst.Cmder) error {
				c.Begin().WaitForData().Assert(lesst.Contains("name"))
				c.Keep().WriteIn("Nancy").WaitFor(lesst.Text("name is")).Assert(lesst.Contains("name is Nancy"))
				return nil
			})
		})

Input and output are plain pipes, not a terminal: programs that insist on a
tty will behave differently, and escape sequences in the output are matched
as text.
*/
package lesst
