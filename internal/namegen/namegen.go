// Package namegen 產生房間代碼與隨機名稱
//
// 這裡的函式都是無狀態的純產生器，房間代碼的唯一性由資料層負責檢查。
package namegen

import (
	"math/rand"
	"strings"
)

const (
	letters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultCodeLength 是房間代碼的預設長度
	DefaultCodeLength = 6
)

var projectAdjectives = []string{
	"Quantum", "Cyber", "Neural", "Fusion", "Phoenix", "Stellar", "Nexus",
	"Vector", "Matrix", "Atomic", "Digital", "Cosmic", "Turbo", "Ultra",
	"Hyper", "Meta", "Alpha", "Beta", "Sigma", "Neon", "Chrome", "Plasma",
	"Laser", "Thunder", "Lightning", "Shadow", "Ghost", "Phantom", "Vortex",
	"Prism", "Crystal",
}

var projectNouns = []string{
	"Protocol", "Engine", "Reactor", "Core", "Hub", "Network", "Circuit",
	"Portal", "Gateway", "Forge", "Lab", "Station", "Terminal", "Interface",
	"Drive", "Sphere", "Cluster", "Grid", "Node", "Pulse", "Wave", "Beam",
	"Storm", "Force", "Prime", "Genesis", "Odyssey", "Infinity", "Eclipse",
	"Spectrum", "Flux",
}

var projectCodenames = []string{
	"X", "Zero", "One", "Prime", "Max", "Pro", "Elite", "Ultra", "2077",
	"3000", "Neo", "Alpha", "Beta", "Omega", "Infinity",
}

var guestAdjectives = []string{
	"Brave", "Calm", "Clever", "Eager", "Gentle", "Happy", "Jolly", "Keen",
	"Lively", "Merry", "Nimble", "Quick", "Quiet", "Sunny", "Swift", "Witty",
}

var guestAnimals = []string{
	"Falcon", "Otter", "Panda", "Tiger", "Koala", "Dolphin", "Fox", "Lynx",
	"Badger", "Heron", "Raven", "Wolf", "Puffin", "Gecko", "Moose", "Orca",
}

// RoomCode 產生一組房間代碼候選
// 第一個字元固定為大寫字母，其餘為大寫字母或數字；長度不足 3 時改用預設長度
func RoomCode(length int) string {
	if length < 3 {
		length = DefaultCodeLength
	}

	var b strings.Builder
	b.Grow(length)
	b.WriteByte(letters[rand.Intn(len(letters))])
	for i := 1; i < length; i++ {
		b.WriteByte(alphanum[rand.Intn(len(alphanum))])
	}
	return b.String()
}

// ProjectName 產生一個隨機的專案名稱
func ProjectName() string {
	adjective := projectAdjectives[rand.Intn(len(projectAdjectives))]
	noun := projectNouns[rand.Intn(len(projectNouns))]

	// 三成機率附加一個代號後綴
	if rand.Float64() < 0.3 {
		codename := projectCodenames[rand.Intn(len(projectCodenames))]
		return adjective + " " + noun + " " + codename
	}
	return adjective + " " + noun
}

// GuestName 產生一個訪客顯示名稱
func GuestName() string {
	adjective := guestAdjectives[rand.Intn(len(guestAdjectives))]
	animal := guestAnimals[rand.Intn(len(guestAnimals))]
	return adjective + " " + animal
}
