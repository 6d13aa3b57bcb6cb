package search

import "testing"

func TestParseNotice(t *testing.T) {
	tests := []struct {
		name   string
		notice string
		want   Result
	}{
		{
			name:   "pipe separated",
			notice: "\x0300,01\x02058\x0315\x02)\x0310  10x\x0304\x02 |\x0310\x02 7.5G\x0304\x02 |\x0310\x02 Something.Something-I-dont-really-know.2022.German.DTS.DL.720p.BluRay.x264-JJ.mkv\x0304\x02 |\x0309\x02 /MSG [AA]-DEMO|EU|S|DOESNOTEXIST XDCC SEND 90 \x0304\x02|\x02\x0300 Used: 11.53% 29/15 avg: 1.71TiB/s (113328s ago)\x0304 ",
			want: Result{
				Network:  "rizon",
				FileName: "Something.Something-I-dont-really-know.2022.German.DTS.DL.720p.BluRay.x264-JJ.mkv",
				Nick:     "[AA]-DEMO|EU|S|DOESNOTEXIST",
				Command:  "XDCC SEND 90",
			},
		},
		{
			name:   "parenthesised",
			notice: "\x0303(\x03 0x \x0303[\x03001.7G\x0303]\x02 I-cant-believe-this.S01E07.1080p.HEVC.x265-noooaa.mkv \x02) (\x03 /msg IDONOTCAREWHATYOURNAMEIS xdcc send #13384 \x0303) (\x03 Used:\x0303 1/10 \x03Avg: \x03991034.62MB/s )",
			want: Result{
				Network:  "rizon",
				FileName: "I-cant-believe-this.S01E07.1080p.HEVC.x265-noooaa.mkv",
				Nick:     "IDONOTCAREWHATYOURNAMEIS",
				Command:  "xdcc send #13384",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNotice("rizon", tt.notice)
			if !ok {
				t.Fatalf("no match for %q", StripFormatting(tt.notice))
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseNoticeIgnoresChatter(t *testing.T) {
	if r, ok := ParseNotice("rizon", "*** You are connected to irc.rizon.net"); ok {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestStripFormatting(t *testing.T) {
	if got := StripFormatting("\x02bold\x02 \x0304,01red\x03 \x1funder\x1f\x0f"); got != "bold red under" {
		t.Fatalf("got %q", got)
	}
}

func TestResultFileInfo(t *testing.T) {
	info := Result{Network: "rizon", FileName: "a.mkv", Nick: "Bot", Command: "xdcc send #13384"}.FileInfo()
	if info.Slot != 13384 || info.URL.UserName != "Bot" || info.URL.Network != "rizon" || info.Size != -1 {
		t.Fatalf("unexpected info %+v", info)
	}
	if (Result{Command: "XDCC SEND 90"}).FileInfo().Slot != 90 {
		t.Fatal("slot without hash not parsed")
	}
}
