package smtp

import "testing"

func TestParseCommandUppercasesName(t *testing.T) {
	cmd, err := ParseCommand("mail FROM:<a@b.com>")
	if err != nil {
		t.Fatalf("ParseCommand error: %v", err)
	}
	if cmd.Name != "MAIL" {
		t.Errorf("Name = %q, want MAIL", cmd.Name)
	}
	if len(cmd.Args) != 1 || cmd.Args[0] != "FROM:<a@b.com>" {
		t.Errorf("Args = %v", cmd.Args)
	}
}

func TestParseCommandEmptyLineErrors(t *testing.T) {
	if _, err := ParseCommand("   "); err == nil {
		t.Error("ParseCommand(blank) returned nil error, want error")
	}
}

func TestCommandIsValid(t *testing.T) {
	valid := &Command{Name: "DATA"}
	if !valid.IsValid() {
		t.Error("IsValid() = false for DATA, want true")
	}
	invalid := &Command{Name: "BOGUS"}
	if invalid.IsValid() {
		t.Error("IsValid() = true for BOGUS, want false")
	}
}

func TestCommandValidateArgs(t *testing.T) {
	cases := []struct {
		name    string
		cmd     Command
		wantErr bool
	}{
		{"HELO with arg", Command{Name: CmdHELO, Args: []string{"mail.example.com"}}, false},
		{"HELO without arg", Command{Name: CmdHELO}, true},
		{"MAIL with FROM prefix", Command{Name: CmdMAIL, Args: []string{"FROM:<a@b.com>"}}, false},
		{"MAIL without FROM prefix", Command{Name: CmdMAIL, Args: []string{"<a@b.com>"}}, true},
		{"RCPT with TO prefix", Command{Name: CmdRCPT, Args: []string{"TO:<a@b.com>"}}, false},
		{"RCPT without TO prefix", Command{Name: CmdRCPT, Args: []string{"<a@b.com>"}}, true},
		{"NOOP has no required shape", Command{Name: CmdNOOP}, false},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.ValidateArgs()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRawArgLineStripsCommandName(t *testing.T) {
	got := RawArgLine("MAIL FROM:<a@b.com> SIZE=100", "MAIL")
	if got != "FROM:<a@b.com> SIZE=100" {
		t.Errorf("RawArgLine = %q", got)
	}
}

func TestRawArgLineCaseInsensitiveName(t *testing.T) {
	got := RawArgLine("mail FROM:<a@b.com>", "MAIL")
	if got != "FROM:<a@b.com>" {
		t.Errorf("RawArgLine = %q", got)
	}
}
